package storage

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	epub "github.com/go-shiori/go-epub"
)

// BuildEpub packages the chapter files into a single EPUB next to the
// merged text file. One section per chapter, in chapter order.
func (w *Writer) BuildEpub() (string, error) {
	files, err := w.ChapterFiles()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no chapter files found in %s", w.chaptersDir)
	}

	book, err := epub.NewEpub(w.Title())
	if err != nil {
		return "", fmt.Errorf("create epub: %w", err)
	}
	book.SetLang("en")

	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}

		title, body := splitChapterFile(string(raw))
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(file), ".txt")
		}

		if _, err := book.AddSection(chapterHTML(title, body), title, "", ""); err != nil {
			return "", fmt.Errorf("add section %s: %w", filepath.Base(file), err)
		}
	}

	outPath := filepath.Join(w.novelDir, w.novelName+".epub")
	if err := book.Write(outPath); err != nil {
		return "", fmt.Errorf("write epub: %w", err)
	}

	return outPath, nil
}

// splitChapterFile separates the ==== header block written by Write from
// the chapter body and recovers the "Chapter N: Title" line.
func splitChapterFile(content string) (title, body string) {
	lines := strings.Split(content, "\n")

	bodyStart := 0
	for i, line := range lines {
		if strings.HasPrefix(line, "Chapter ") && title == "" {
			title = strings.TrimSpace(line)
		}
		if strings.HasPrefix(line, "Source: ") {
			bodyStart = i + 1
			break
		}
	}

	body = strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))

	return title, body
}

func chapterHTML(title, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(title))
	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(para))
	}

	return b.String()
}
