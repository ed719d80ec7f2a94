package runtime

import (
	"anon-chat/errors"
	"bufio"
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/samber/lo"
)

//go:embed banned/*
var DefaultBannedWords embed.FS

// DefaultBannedWordsDir is the directory of DefaultBannedWords holding the seed lists.
const DefaultBannedWordsDir = "banned"

// BannedWords is the seed list with the dictionaries it came from, for the startup log.
type BannedWords struct {
	Words        []string
	Dictionaries []string
}

// LoadBannedWords reads every .txt file of dir, one word or phrase per line.
// Lines starting with # are comments.
func LoadBannedWords(fsys fs.FS, dir string) (BannedWords, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return BannedWords{}, err
	}

	var res BannedWords
	var words []string
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		res.Dictionaries = append(res.Dictionaries, strings.TrimSuffix(entry.Name(), ".txt"))

		f, err := fsys.Open(path.Join(dir, entry.Name()))
		if err != nil {
			return BannedWords{}, err
		}
		// ⚠️Don't use strings.Split, \r\n endings must go too
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if line != "" && !strings.HasPrefix(line, "#") {
				words = append(words, line)
			}
		}
		err = scanner.Err()
		_ = f.Close()
		if err != nil {
			return BannedWords{}, err
		}
	}

	if len(words) == 0 {
		return res, errors.ErrEmptyWords
	}
	res.Words = lo.Uniq(words)
	slices.Sort(res.Words)
	return res, nil
}
