package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/SchnorcherSepp/otpvault/backup"
	"github.com/SchnorcherSepp/otpvault/config"
	"github.com/SchnorcherSepp/otpvault/core"
	enc "github.com/SchnorcherSepp/otpvault/encoding"
	"github.com/SchnorcherSepp/otpvault/vault"
	"github.com/SchnorcherSepp/otpvault/webdav"
	impl "github.com/SchnorcherSepp/storage/defaultimpl"
	"github.com/SchnorcherSepp/storage/gdrive"
	interf "github.com/SchnorcherSepp/storage/interfaces"
	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// version is set by `go build`
var version = "<version>"

// CLI commands (see https://github.com/alecthomas/kong)
var CLI struct {
	Debug     int    `short:"v" type:"counter" help:"Enable debug mode (-v for debug, -vv for trace)."`
	Config    string `short:"c" type:"path" help:"Path to a YAML config file."`
	VaultPath string `name:"vault" short:"p" type:"path" help:"The path to the OTP vault (overwrites config and OTP_VAULT_PATH)."`

	Version struct {
	} `cmd:"" help:"Show the program version."`

	Vault struct {
		Init struct {
		} `cmd:"" help:"Initialize a new vault at the vault path."`
		Status struct {
			JSON bool `help:"Print the status as JSON."`
		} `cmd:"" help:"Show the status of the vault."`
		Clear struct {
			Yes bool `help:"Really delete all pads."`
		} `cmd:"" help:"Delete all pads and reset the vault state."`
	} `cmd:"" help:"Manage OTP vaults."`

	Pad struct {
		Generate struct {
			Size  int `short:"s" help:"The size of the pad in MiB (default from config: 1)."`
			Count int `short:"n" help:"The number of pads to generate (default from config: 1)."`
		} `cmd:"" help:"Generate new one-time pad files."`
		List struct {
		} `cmd:"" help:"List all pads in the vault."`
		Delete struct {
			PadID string `arg:"" help:"The ID of the pad to delete."`
		} `cmd:"" help:"Delete a pad from the vault."`
		Import struct {
			ID   string `help:"The pad ID (default: file name without '.pad')."`
			File string `arg:"" type:"existingfile" help:"The pad file (a copy from the other party)."`
		} `cmd:"" help:"Import an existing pad file."`
		Export struct {
			PadID string `arg:"" help:"The ID of the pad to export."`
			File  string `arg:"" type:"path" help:"The target file (must not exist)."`
		} `cmd:"" help:"Copy a pad file for the other party."`
	} `cmd:"" help:"Manage pads within a vault."`

	Encrypt struct {
		Output string `short:"o" type:"path" help:"Output file. If omitted, uses the input file name with a .enc extension."`
		PadID  string `help:"The ID of the pad to use. If omitted, a suitable pad is selected automatically."`
		Offset int64  `default:"-1" help:"[ADVANCED] The starting offset in bytes for the pad segment."`
		//-----------------
		Input string `arg:"" type:"existingfile" help:"Path to the input file to encrypt."`
	} `cmd:"" help:"Encrypt a file with an unused pad segment."`

	Decrypt struct {
		Input    string `short:"i" required:"" type:"existingfile" help:"Path to the input file to decrypt."`
		Output   string `short:"o" required:"" type:"path" help:"Path to the output file."`
		Metadata string `type:"path" help:"Path to the metadata file (default: <input>.metadata.json). If it doesn't exist, --pad-id and --length are used."`
		PadID    string `help:"The ID of the pad (without metadata)."`
		Length   int64  `default:"-1" help:"The length of the pad segment (without metadata)."`
		Offset   int64  `help:"The starting offset of the pad segment (without metadata)."`
	} `cmd:"" help:"Decrypt a file."`

	Segment struct {
		Take struct {
			PadID  string `help:"The ID of the pad. If omitted, a suitable pad is selected automatically."`
			Output string `short:"o" required:"" type:"path" help:"File for the raw pad bytes (must not exist)."`
			Length int64  `arg:"" help:"Number of bytes."`
		} `cmd:"" help:"Take raw pad bytes for an external cipher (the bytes are marked as used)."`
		Mark struct {
			PadID string `arg:"" help:"The ID of the pad."`
			Start int64  `arg:"" help:"First byte."`
			End   int64  `arg:"" help:"End (exclusive)."`
		} `cmd:"" help:"Mark a pad segment as used."`
	} `cmd:"" help:"Work with raw pad segments."`

	Oauth struct {
		ReadOnly bool `short:"r" help:"Requests only read rights (no upload possible)."`
		//-----------------
		ClientFile string `arg:"" type:"path" help:"The identifier for a app, to use the google api."`
		TokenFile  string `arg:"" type:"path" help:"Token for access to your gdrive."`
	} `cmd:"" help:"Create the Google OAuth 2.0 files (ClientFile and TokenFile)."`

	Keygen struct {
		KeyFile string `arg:"" type:"path" help:"Path to the key file (must not exist)."`
	} `cmd:"" help:"Creates a new key file (used for state snapshots)."`

	Backup struct {
		KeyFile string `short:"k" type:"path" help:"Path to the key file (default from config)."`
		//-----------------
		Export struct {
			File string `arg:"" type:"path" help:"Snapshot file."`
		} `cmd:"" help:"Write an encrypted snapshot of the vault state to a file."`
		Import struct {
			Force bool   `short:"f" help:"Restore even if the snapshot misses used segments of the local state."`
			File  string `arg:"" type:"existingfile" help:"Snapshot file."`
		} `cmd:"" help:"Restore the vault state from a snapshot file."`
		Push struct {
		} `cmd:"" help:"Upload an encrypted snapshot of the vault state to Google Drive."`
		Pull struct {
			Force bool `short:"f" help:"Restore even if the snapshot misses used segments of the local state."`
		} `cmd:"" help:"Restore the vault state from Google Drive."`
	} `cmd:"" help:"Encrypted backups of the vault state (never the pads)."`

	Serve struct {
		LocalAddr      string `short:"l" help:"The local server address like '1.2.3.4:8080' or '[::1]:443' (default from config: ':8080')."`
		UserFile       string `short:"f" type:"path" help:"Path to the file with usernames and password hashes."`
		UpdateInterval int    `short:"u" help:"The state file is reloaded every n seconds (default from config: 300)."`
		Cert           string `type:"path" help:"Path to the server certificate (enables TLS)."`
		CertKey        string `type:"path" help:"Path to the server certificate key."`
	} `cmd:"" help:"Starts a WebDAV server with a JSON API for the vault."`
}

func main() {
	description := "One-time pad vault: manages pads, encrypts and decrypts files and never reuses pad bytes."
	ctx := kong.Parse(&CLI, kong.UsageOnError(), kong.Description(description))

	setupLogging(CLI.Debug)
	cfg, err := config.Load(CLI.Config)
	ctx.FatalIfErrorf(err)
	if CLI.VaultPath != "" {
		cfg.VaultPath = CLI.VaultPath
	}

	ctx.FatalIfErrorf(run(commandPath(ctx.Selected()), cfg))
}

// run executes a command (@see commandPath).
func run(cmd string, cfg config.Config) error {
	switch cmd {

	case "version":
		fmt.Printf("%s %s\n", path.Base(os.Args[0]), version)
		fmt.Printf("%s %s/%s (%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.Compiler)
		return nil

	case "oauth":
		_, err := gdrive.OAuth(CLI.Oauth.ClientFile, CLI.Oauth.TokenFile, CLI.Oauth.ReadOnly)
		return err

	case "keygen":
		return enc.CreateKeyFile(CLI.Keygen.KeyFile)

	case "vault init":
		if cfg.VaultPath == "" {
			return errors.New("the vault path is required (--vault, OTP_VAULT_PATH or config)")
		}
		l := vault.NewLayout(cfg.VaultPath)
		if err := l.Init(); err != nil {
			return err
		}
		fmt.Printf("Vault initialized at '%s'\n", l.Root)
		return nil

	case "serve":
		l, err := openLayout(cfg)
		if err != nil {
			return err
		}
		return serve(l, cfg.Server)
	}

	// all other commands work on an existing vault
	l, err := openLayout(cfg)
	if err != nil {
		return err
	}
	st, err := vault.Load(l.Root)
	if err != nil {
		return err
	}

	switch cmd {

	case "vault status":
		return printStatus(core.Status(l, st), CLI.Vault.Status.JSON)

	case "vault clear":
		if !CLI.Vault.Clear.Yes {
			return errors.New("this deletes all pads: confirm with --yes")
		}
		n, err := core.ClearVault(l, st)
		fmt.Printf("%d pads deleted\n", n)
		return err

	case "pad generate":
		a := CLI.Pad.Generate
		if a.Size <= 0 {
			a.Size = cfg.PadSizeMB
		}
		if a.Count <= 0 {
			a.Count = cfg.PadCount
		}
		pads, err := core.GeneratePads(l, st, int64(a.Size)*core.MiB, a.Count)
		for _, p := range pads {
			fmt.Printf("Generated pad %s (%d MiB)\n", p.ID, a.Size)
		}
		return err

	case "pad list":
		printPads(l, st)
		return nil

	case "pad delete":
		if err := core.DeletePad(l, st, CLI.Pad.Delete.PadID); err != nil {
			return err
		}
		fmt.Printf("Pad %s deleted\n", CLI.Pad.Delete.PadID)
		return nil

	case "pad import":
		p, err := core.ImportPad(l, st, CLI.Pad.Import.File, CLI.Pad.Import.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Imported pad %s (%d bytes)\n", p.ID, p.Size)
		return nil

	case "pad export":
		return core.ExportPad(l, st, CLI.Pad.Export.PadID, CLI.Pad.Export.File)

	case "encrypt":
		a := CLI.Encrypt
		opt := core.EncryptOptions{Pad: core.ExplicitPad(a.PadID)}
		if a.Offset >= 0 {
			opt.Offset = &a.Offset
		}
		meta, out, err := core.EncryptFile(l, st, a.Input, a.Output, opt)
		if err != nil && !errors.Is(err, core.ErrStateNotPersisted) {
			return err
		}
		fmt.Printf("Encrypted '%s' -> '%s'\n", a.Input, out)
		fmt.Printf("  pad %s, bytes [%d, %d)\n", meta.PadID, meta.StartByte, meta.StartByte+meta.Length)
		fmt.Printf("  metadata '%s'\n", core.MetadataPath(out))
		return err

	case "decrypt":
		prm, err := decryptParams()
		if err != nil {
			return err
		}
		if err := core.DecryptFile(l, st, CLI.Decrypt.Input, CLI.Decrypt.Output, prm); err != nil {
			return err
		}
		fmt.Printf("Decrypted '%s' -> '%s'\n", CLI.Decrypt.Input, CLI.Decrypt.Output)
		return nil

	case "segment take":
		return takeSegment(l, st)

	case "segment mark":
		a := CLI.Segment.Mark
		return core.MarkUsed(l, st, a.PadID, a.Start, a.End)

	case "backup export", "backup import", "backup push", "backup pull":
		return runBackup(cmd, l, st, cfg)

	default:
		return fmt.Errorf("command not implemented: '%s'", cmd)
	}
}

//-##################################################################################################################-//

// setupLogging maps the -v counter to the log level.
func setupLogging(debug int) {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	switch {
	case debug >= 2:
		log.SetLevel(log.TraceLevel)
	case debug == 1:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

// storageDebugLvl maps the -v counter to the storage debug levels.
func storageDebugLvl(debug int) uint8 {
	switch {
	case debug >= 2:
		return impl.DebugHigh
	case debug == 1:
		return impl.DebugLow
	default:
		return impl.DebugOff
	}
}

// commandPath returns the full command of a node (example: "pad generate").
func commandPath(node *kong.Node) string {
	var parts []string
	for n := node; n != nil && n.Type == kong.CommandNode; n = n.Parent {
		parts = append([]string{n.Name}, parts...)
	}
	return strings.Join(parts, " ")
}

// openLayout checks the vault path.
func openLayout(cfg config.Config) (vault.Layout, error) {
	if cfg.VaultPath == "" {
		return vault.Layout{}, errors.New("the vault path is required (--vault, OTP_VAULT_PATH or config)")
	}
	l := vault.NewLayout(cfg.VaultPath)
	if !l.Exists() {
		return l, fmt.Errorf("vault path '%s' does not exist: create it with 'vault init'", l.Root)
	}
	return l, nil
}

// decryptParams reads the metadata file or uses the manual flags.
func decryptParams() (core.DecryptParams, error) {
	a := CLI.Decrypt

	metaPath := a.Metadata
	if metaPath == "" {
		metaPath = core.MetadataPath(a.Input)
	}
	if _, err := os.Stat(metaPath); err == nil {
		m, err := core.ReadMetadata(metaPath)
		if err != nil {
			return core.DecryptParams{}, err
		}
		return m.Params(), nil
	} else if a.Metadata != "" {
		return core.DecryptParams{}, err
	}

	// manual
	if a.PadID == "" {
		return core.DecryptParams{}, errors.New("no metadata file: --pad-id is required")
	}
	length := a.Length
	if length < 0 {
		info, err := os.Stat(a.Input)
		if err != nil {
			return core.DecryptParams{}, err
		}
		length = info.Size()
	}
	log.Warnf("decrypt without metadata: the ciphertext integrity is not checked")
	return core.DecryptParams{PadID: a.PadID, Start: a.Offset, Length: length}, nil
}

// takeSegment writes raw pad bytes to a new file.
func takeSegment(l vault.Layout, st *vault.State) error {
	a := CLI.Segment.Take

	fh, err := os.OpenFile(a.Output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	seg, err := core.TakeSegment(l, st, core.ExplicitPad(a.PadID), a.Length)
	if err != nil {
		_ = fh.Close()
		_ = os.Remove(a.Output)
		return err
	}
	if _, err := fh.Write(seg.Data); err != nil {
		_ = fh.Close()
		return err
	}
	fmt.Printf("pad %s, bytes [%d, %d) -> '%s'\n", seg.PadID, seg.Start, seg.End(), a.Output)
	return fh.Close()
}

// printStatus prints the vault summary.
func printStatus(vs core.VaultStatus, asJSON bool) error {
	if asJSON {
		b, err := json.MarshalIndent(vs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}

	p := message.NewPrinter(language.English)
	p.Printf("Vault Status for: %s\n", vs.Root)
	p.Printf("  pads:            %d (%d available, %d fully used)\n", len(vs.Pads), vs.Available, vs.FullyUsed)
	p.Printf("  total storage:   %d bytes\n", vs.Total)
	p.Printf("  used:            %d bytes\n", vs.Used)
	p.Printf("  remaining:       %d bytes\n", vs.Total-vs.Used)
	p.Printf("  largest segment: %d bytes\n", vs.LargestUnused)
	return nil
}

// printPads prints one line per pad.
func printPads(l vault.Layout, st *vault.State) {
	vs := core.Status(l, st)
	if len(vs.Pads) == 0 {
		fmt.Printf("No pads found in vault '%s'\n", l.Root)
		return
	}

	p := message.NewPrinter(language.English)
	p.Printf("Pads in vault '%s':\n", l.Root)
	for _, ps := range vs.Pads {
		state := "available"
		if ps.FullyUsed {
			state = "fully used"
		}
		p.Printf("  %s  %d bytes  %.2f%% used  %d segments  %s\n", ps.ID, ps.Size, ps.UsagePercent, ps.Segments, state)
	}
}

// runBackup handles the backup commands.
func runBackup(cmd string, l vault.Layout, st *vault.State, cfg config.Config) error {
	keyPath := CLI.Backup.KeyFile
	if keyPath == "" {
		keyPath = cfg.Backup.KeyFile
	}
	if keyPath == "" {
		return errors.New("a key file is required (--key-file or config)")
	}
	keyFile, err := enc.LoadKeyFile(keyPath)
	if err != nil {
		return err
	}

	var snapshot *vault.State
	var force bool
	switch cmd {
	case "backup export":
		return backup.ToFile(st, keyFile.SnapshotKey(), CLI.Backup.Export.File)

	case "backup push":
		service, err := gdriveService(cfg.Backup, false)
		if err != nil {
			return err
		}
		return backup.Push(service, keyFile, cfg.Backup.VaultName, st)

	case "backup import":
		force = CLI.Backup.Import.Force
		snapshot, err = backup.FromFile(CLI.Backup.Import.File, keyFile.SnapshotKey())
		if err == nil && !force {
			err = backup.CheckNotStale(snapshot, st)
		}

	case "backup pull":
		force = CLI.Backup.Pull.Force
		service, sErr := gdriveService(cfg.Backup, true)
		if sErr != nil {
			return sErr
		}
		local := st
		if force {
			local = nil
		}
		snapshot, err = backup.Pull(service, keyFile, cfg.Backup.VaultName, local)
	}
	if err != nil {
		return err
	}

	// restore
	if err := vault.Save(l.Root, snapshot); err != nil {
		return err
	}
	fmt.Printf("State with %d pads restored to '%s'\n", len(snapshot.Pads), l.StateFile())
	return nil
}

// gdriveService builds the storage service for the snapshots.
func gdriveService(b config.Backup, readOnly bool) (interf.Service, error) {
	if b.ClientFile == "" || b.TokenFile == "" {
		return nil, errors.New("backup.client_file and backup.token_file are required in the config")
	}
	oauth, err := gdrive.OAuth(b.ClientFile, b.TokenFile, readOnly)
	if err != nil {
		return nil, err
	}
	return gdrive.NewGService(b.FolderID, b.CacheFile, false, oauth, nil, storageDebugLvl(CLI.Debug)), nil
}

// serve starts the WebDAV server with the JSON API.
func serve(l vault.Layout, s config.Server) error {
	a := CLI.Serve
	if a.LocalAddr != "" {
		s.Addr = a.LocalAddr
	}
	if a.UserFile != "" {
		s.UserFile = a.UserFile
	}
	if a.UpdateInterval > 0 {
		s.UpdateInterval = a.UpdateInterval
	}
	if a.Cert != "" || a.CertKey != "" {
		s.Cert, s.CertKey = a.Cert, a.CertKey
	}
	if s.UserFile == "" {
		return errors.New("a user file is required (--user-file or config)")
	}

	handler := webdav.NewHandler(l.Root, core.NewLocker(), s.UserFile, s.UpdateInterval)
	return webdav.Serve(s.Addr, s.UseTLS(), s.Cert, s.CertKey, handler)
}
