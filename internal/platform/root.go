package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProjectSettingsFile is the project-local settings file name.
const ProjectSettingsFile = ".molstage.yaml"

// FindSettings looks upwards from startDir for a project-local settings
// file and returns its absolute path.
func FindSettings(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, ProjectSettingsFile) {
			return filepath.Join(dir, ProjectSettingsFile), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no %s found above %s", ProjectSettingsFile, abs)
}

func hasFile(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}
