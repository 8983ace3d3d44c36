package walker

import (
	"os"
	"path/filepath"
	"runtime"
)

// DiscoverRoots returns the filesystem roots for all-roots discovery. On
// Windows every present drive letter is probed; elsewhere the root
// filesystem plus conventional mount directories are used.
func DiscoverRoots() []string {
	if runtime.GOOS == "windows" {
		return discoverWindowsDrives()
	}
	return discoverUnixRoots()
}

func discoverWindowsDrives() []string {
	drives := make([]string, 0, 4)
	for letter := 'A'; letter <= 'Z'; letter++ {
		path := string(letter) + `:\`
		if _, err := os.Stat(path); err == nil {
			drives = append(drives, path)
		}
	}
	return drives
}

func discoverUnixRoots() []string {
	roots := []string{"/"}
	// Mounted volumes under these directories are already reachable from
	// "/", but listing them keeps them first in deterministic root order
	// and survives a future root restriction.
	for _, mountDir := range []string{"/mnt", "/media", "/Volumes"} {
		entries, err := os.ReadDir(mountDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				roots = append(roots, filepath.Join(mountDir, entry.Name()))
			}
		}
	}
	return roots
}
