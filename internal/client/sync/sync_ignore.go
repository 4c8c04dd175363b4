package sync

import (
	"bufio"
	"log/slog"
	"os"
	"strings"

	"github.com/openmined/scriptsync/internal/utils"
	gitignore "github.com/sabhiram/go-gitignore"
)

// SyncIgnoreList decides which published names are never fetched.
// Rules are gitignore lines from the configured patterns, then the ignore file. With neither, nothing is ignored.
type SyncIgnoreList struct {
	path     string
	patterns []string
	ignore   *gitignore.GitIgnore
}

func NewSyncIgnoreList(path string, patterns []string) *SyncIgnoreList {
	return &SyncIgnoreList{path: path, patterns: patterns}
}

func (s *SyncIgnoreList) Load() {
	ignoreLines := append([]string{}, s.patterns...)

	if s.path != "" && utils.FileExists(s.path) {
		ignoreLines = append(ignoreLines, readIgnoreFile(s.path)...)
	}

	s.ignore = gitignore.CompileIgnoreLines(ignoreLines...)
}

func readIgnoreFile(path string) []string {
	file, err := os.Open(path)
	if err != nil {
		slog.Warn("failed to open ignore file", "path", path, "error", err)
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		slog.Warn("error reading ignore file", "path", path, "error", err)
	} else {
		slog.Info("loaded ignore file", "path", path, "rules", len(lines))
	}
	return lines
}

// ShouldIgnore matches a slash separated published name
func (s *SyncIgnoreList) ShouldIgnore(name string) bool {
	if s == nil || s.ignore == nil {
		return false
	}
	return s.ignore.MatchesPath(name)
}
