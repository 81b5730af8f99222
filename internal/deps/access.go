package deps

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"gitreel/internal/config"
)

// DirectoryResult reports whether a working directory is usable.
type DirectoryResult struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) DirectoryResult {
	result := DirectoryResult{Name: name, Path: path}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			result.Detail = fmt.Sprintf("%s (error: does not exist)", path)
			return result
		}
		result.Detail = fmt.Sprintf("%s (error: stat: %v)", path, err)
		return result
	}
	if !info.IsDir() {
		result.Detail = fmt.Sprintf("%s (error: is not a directory)", path)
		return result
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		result.Detail = fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)
		return result
	}
	result.Passed = true
	result.Detail = fmt.Sprintf("%s (read/write ok)", path)
	return result
}

// CheckDirectories checks every directory the pipeline writes into.
func CheckDirectories(cfg *config.Config) []DirectoryResult {
	dirs := []struct{ name, path string }{
		{"Data", cfg.Paths.DataDir},
		{"Output", cfg.Paths.OutputDir},
		{"Temp", cfg.Paths.TempDir},
		{"Audio", cfg.Paths.AudioDir},
		{"Logs", cfg.Paths.LogDir},
	}
	out := make([]DirectoryResult, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, CheckDirectoryAccess(d.name, d.path))
	}
	return out
}
