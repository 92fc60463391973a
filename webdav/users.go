package webdav

/*
	IN THIS FILE: user management
		- load users from the user file
		- reload on changes
		- access prefix
*/

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// userReloadInterval is the minimum time between two user file checks.
const userReloadInterval = 15 * time.Second

// _Users manages all users.
type _Users struct {
	userFile      string
	userFileMTime time.Time

	mux            sync.Mutex
	lastUpdate     time.Time
	updateInterval time.Duration
	users          map[string]*_User
}

// initUsers return the user management.
// The user file is monitored for changes (ModTime).
//
//  line format: <username>:<bcrypt hash>:<access prefix>:...
//    * one user per line
//    * comment lines starts with '#' or ';' or '/' or '%'
//    * there can be several access prefix, but at least one (separator is ':')
//    * do not use ' ' in your username or access prefix
//
//  example: alice:$2y$12$...:/pads/:/api/
func initUsers(userFile string) *_Users {
	us := &_Users{
		userFile:       userFile,
		updateInterval: userReloadInterval,
		users:          make(map[string]*_User),
	}
	us.userUpdate()
	return us
}

// Get return a user. The user file is reloaded if it has changed.
func (us *_Users) Get(username string) (*_User, bool) {
	us.mux.Lock()
	defer us.mux.Unlock()

	us.userUpdate()

	user, ok := us.users[username]
	return user, ok
}

// userUpdate reloads the user file.
// It only has an effect every updateInterval and if the file has changed.
//
//  return codes:
//    -1  too early
//    -2  file not found
//    -3  file not changed
//    n   number of users
func (us *_Users) userUpdate() int {
	if us.lastUpdate.Add(us.updateInterval).After(time.Now()) {
		return -1
	}
	us.lastUpdate = time.Now()

	info, err := os.Stat(us.userFile)
	if err != nil {
		log.Warnf("%s/userUpdate: stat error: %v", packageName, err)
		return -2
	}
	if info.ModTime().Equal(us.userFileMTime) {
		return -3
	}

	fh, err := os.Open(us.userFile)
	if err != nil {
		log.Warnf("%s/userUpdate: open error: %v", packageName, err)
		return -2
	}
	defer fh.Close()

	log.Debugf("%s/userUpdate: read user file: '%s'", packageName, us.userFile)
	us.users = parseUsers(fh)
	us.userFileMTime = info.ModTime()
	return len(us.users)
}

// parseUsers reads the first 1000 lines of a user file.
func parseUsers(r io.Reader) map[string]*_User {
	users := make(map[string]*_User)

	br := bufio.NewReader(r)
	for i := 0; i < 1000; i++ {
		line, err := br.ReadString('\n')
		line = strings.TrimSpace(line)
		line = strings.ReplaceAll(line, " ", "")
		line = strings.ReplaceAll(line, "\t", "")

		switch {
		case len(line) == 0:
			// empty
		case strings.ContainsAny(line[:1], "#;/%"):
			// comment
		default:
			args := strings.Split(line, ":")
			if len(args) < 3 || args[0] == "" || args[1] == "" || args[2] == "" {
				log.Warnf("%s/parseUsers: invalid line[%d]: %s", packageName, i+1, line)
				break
			}
			u := &_User{
				Username:   args[0],
				PassHash:   args[1],
				pathPrefix: args[2:],
			}
			users[u.Username] = u
			log.Tracef("%s/parseUsers: add user '%s' with access prefix %v", packageName, u.Username, u.pathPrefix)
		}

		if err != nil {
			break // EOF
		}
	}
	return users
}

//--------------------------------------------------------------------------------------------------------------------//

// _User contains the settings of a user.
type _User struct {
	Username   string
	PassHash   string
	pathPrefix []string
}

// Allowed checks if the user has permission to access a path.
// The root is always allowed (an empty listing without permissions).
func (u *_User) Allowed(url string) bool {
	if url == "" || url == "/" || url == "." {
		return true
	}
	for _, pp := range u.pathPrefix {
		if strings.HasPrefix(url, pp) {
			return true
		}
	}
	return false
}
