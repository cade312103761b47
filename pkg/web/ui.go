package web

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// serveSPA serves files from directory, falling back to mainIndex for
// anything that is not a file so client-side routes and captive-portal
// probes for arbitrary URLs land on the UI.
func serveSPA(directory string, mainIndex string) http.HandlerFunc {
	mainIndexPath := filepath.Join(directory, mainIndex)

	return func(w http.ResponseWriter, r *http.Request) {
		// Disable caching
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		if r.URL.Path == "/" {
			http.ServeFile(w, r, mainIndexPath)
			return
		}

		filePath := filepath.Join(directory, filepath.FromSlash(path.Clean("/"+r.URL.Path)))

		info, err := os.Stat(filePath)
		if err != nil || info.IsDir() {
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				http.Error(w, "cannot read UI file", http.StatusInternalServerError)
				return
			}
			http.ServeFile(w, r, mainIndexPath)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}
