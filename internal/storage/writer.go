package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/ranobe-tools/noveld/internal/extract"
)

const (
	chaptersSubdir = "chapters"
	mergedFilename = "full.txt"

	headerRule = "================================================================================"
)

// Writer persists chapters under {output}/{novel-slug}/chapters/ and merges
// them into {output}/{novel-slug}/full.txt. Filenames are zero-padded so
// lexical order equals numeric order.
type Writer struct {
	novelDir    string
	chaptersDir string
	novelName   string
}

func NewWriter(outputDir, novelSlug string) (*Writer, error) {
	novelDir := filepath.Join(outputDir, novelSlug)
	chaptersDir := filepath.Join(novelDir, chaptersSubdir)

	if err := os.MkdirAll(chaptersDir, 0755); err != nil {
		return nil, fmt.Errorf("create chapters folder: %w", err)
	}

	return &Writer{
		novelDir:    novelDir,
		chaptersDir: chaptersDir,
		novelName:   novelSlug,
	}, nil
}

// OpenWriter attaches to an existing novel directory without creating it,
// for the standalone merge and epub commands.
func OpenWriter(novelDir string) (*Writer, error) {
	chaptersDir := filepath.Join(novelDir, chaptersSubdir)
	if _, err := os.Stat(chaptersDir); err != nil {
		return nil, fmt.Errorf("no chapters folder in %s: %w", novelDir, err)
	}

	return &Writer{
		novelDir:    novelDir,
		chaptersDir: chaptersDir,
		novelName:   filepath.Base(novelDir),
	}, nil
}

func (w *Writer) NovelDir() string {
	return w.novelDir
}

func (w *Writer) ChapterFilename(index int) string {
	return fmt.Sprintf("chapter_%03d.txt", index)
}

// Write stores one chapter. Filesystem errors are fatal for the run and are
// surfaced as-is, never retried.
func (w *Writer) Write(index int, ch extract.Chapter, sourceURL string) (string, error) {
	title := ch.Title
	if title == "" {
		title = fmt.Sprintf("Chapter %d", index)
	}

	path := filepath.Join(w.chaptersDir, w.ChapterFilename(index))
	if err := os.WriteFile(path, []byte(formatChapter(index, title, ch.Body(), sourceURL)), 0644); err != nil {
		return "", fmt.Errorf("write chapter %d: %w", index, err)
	}

	return path, nil
}

func formatChapter(index int, title, body, sourceURL string) string {
	var b strings.Builder
	b.WriteString(headerRule + "\n")
	fmt.Fprintf(&b, "Chapter %d: %s\n", index, title)
	b.WriteString(headerRule + "\n")
	fmt.Fprintf(&b, "Source: %s\n\n", sourceURL)
	b.WriteString(body)
	b.WriteString("\n\n")

	return b.String()
}

// ChapterFiles lists the written chapter files in ascending chapter order.
func (w *Writer) ChapterFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(w.chaptersDir, "chapter_*.txt"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	return matches, nil
}

// Merge rewrites the combined file from whatever chapter files are on disk.
// Running it twice over identical inputs produces byte-identical output.
func (w *Writer) Merge() (string, error) {
	files, err := w.ChapterFiles()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no chapter files found in %s", w.chaptersDir)
	}

	outPath := filepath.Join(w.novelDir, mergedFilename)
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create merged file: %w", err)
	}
	defer func() {
		_ = out.Close()
	}()

	fmt.Fprintf(out, "%s\n%s\n%s\n\n", headerRule, w.Title(), headerRule)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		if _, err := out.Write(content); err != nil {
			return "", err
		}
		if _, err := out.WriteString("\n\n"); err != nil {
			return "", err
		}
	}

	return outPath, nil
}

// Title turns the slug back into a readable novel title.
func (w *Writer) Title() string {
	words := strings.Split(strings.ReplaceAll(w.novelName, "-", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	return strings.Join(words, " ")
}
