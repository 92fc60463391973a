package webdav

// packageName is used for debug and error messages
const packageName = "webdav"

// apiPrefix is the path of the JSON API. All other paths are read-only WebDAV.
const apiPrefix = "/api/"

// maxUploadSize limits the body of a pad upload (1 GiB).
const maxUploadSize = 1 << 30
