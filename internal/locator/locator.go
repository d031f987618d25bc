package locator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Locator identifies exactly one fetchable chapter URL. For the known
// reader URL layouts (.../vNN/cNN) it keeps the base prefix plus volume and
// chapter tokens so the successor URL can be computed; anything else is kept
// as an opaque URL that cannot be advanced arithmetically.
type Locator struct {
	Base    string
	Volume  string
	Chapter int

	chapterWidth int
	opaque       string
}

var (
	readURLRe = regexp.MustCompile(`^(.*)/v(\d+)/c(\d+)/?$`)

	slugRes = []*regexp.Regexp{
		regexp.MustCompile(`/ru/book/\d+--([^/]+)`),
		regexp.MustCompile(`/r/\d+--([^/]+)`),
	}
)

var ErrNoPattern = errors.New("url does not match a known chapter pattern")

func Parse(rawURL string) (Locator, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return Locator{}, errors.New("empty url")
	}

	m := readURLRe.FindStringSubmatch(raw)
	if m == nil {
		return Locator{opaque: raw}, ErrNoPattern
	}

	ch, err := strconv.Atoi(m[3])
	if err != nil {
		return Locator{opaque: raw}, ErrNoPattern
	}

	return Locator{
		Base:         m[1],
		Volume:       m[2],
		Chapter:      ch,
		chapterWidth: len(m[3]),
	}, nil
}

// Opaque wraps an absolute URL that does not follow the vNN/cNN layout.
func Opaque(rawURL string) Locator {
	return Locator{opaque: strings.TrimSpace(rawURL)}
}

func (l Locator) IsOpaque() bool {
	return l.opaque != ""
}

func (l Locator) URL() string {
	if l.opaque != "" {
		return l.opaque
	}

	return fmt.Sprintf("%s/v%s/c%0*d", l.Base, l.Volume, l.chapterWidth, l.Chapter)
}

// WithChapter returns a copy pointing at the given chapter number inside the
// same volume, preserving the zero-padding width of the source URL.
func (l Locator) WithChapter(n int) (Locator, error) {
	if l.opaque != "" {
		return Locator{}, ErrNoPattern
	}
	if n < 1 {
		return Locator{}, fmt.Errorf("invalid chapter number %d", n)
	}

	next := l
	next.Chapter = n

	return next, nil
}

// Next is the arithmetic-increment successor. It cannot cross a volume
// boundary; callers that need that must rely on the page's next link.
func (l Locator) Next() (Locator, error) {
	return l.WithChapter(l.Chapter + 1)
}

// NovelSlug extracts the directory-safe novel name from the URL. Both
// ranobelib.me (/ru/book/195738--some-novel/...) and ranobe.org
// (/r/195738--some-novel/...) layouts are recognized.
func NovelSlug(rawURL string) string {
	for _, re := range slugRes {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}

	return "unknown-novel"
}
