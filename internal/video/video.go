package video

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Open picks a capture device for integer identifiers and a file or stream
// URL for anything else.
func Open(uri string) (*Stream, error) {
	if deviceID, err := strconv.Atoi(uri); err == nil {
		return NewDeviceStream(deviceID)
	}
	return NewFileStream(uri)
}

// SourceName is the identifier used in recording file names: the file stem
// for paths, the last path element for URLs.
func SourceName(uri string) string {
	if deviceID, err := strconv.Atoi(uri); err == nil {
		return "cam" + strconv.Itoa(deviceID)
	}

	base := filepath.Base(strings.TrimRight(uri, "/"))
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "video"
	}
	return name
}

func isLocalFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
