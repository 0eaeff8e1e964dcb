package handlers

import (
	"net/http"
	"sort"
	"strings"

	"ecoquest/internal/models"
)

// PageInit renders one page. It runs after the role check, with a fresh page controller.
type PageInit func(w http.ResponseWriter, r *http.Request, pc *PageContext)

// Page is one row of the page table. An empty Role means the page is public.
type Page struct {
	Name    string
	Pattern string
	Role    models.Role
	Init    PageInit
}

type compiledPage struct {
	Page
	segments []string
	literals int
	order    int
}

// Router maps a URL path to exactly one page initializer
type Router struct {
	pages []compiledPage
}

// NewRouter compiles the page table, most specific pattern first
func NewRouter(pages []Page) *Router {
	compiled := make([]compiledPage, 0, len(pages))
	for i, p := range pages {
		segs := splitPath(p.Pattern)
		literals := 0
		for _, s := range segs {
			if !isWildcard(s) {
				literals++
			}
		}
		compiled = append(compiled, compiledPage{Page: p, segments: segs, literals: literals, order: i})
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		a, b := compiled[i], compiled[j]
		if a.literals != b.literals {
			return a.literals > b.literals
		}
		if len(a.Pattern) != len(b.Pattern) {
			return len(a.Pattern) > len(b.Pattern)
		}
		return a.order < b.order
	})
	return &Router{pages: compiled}
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func isWildcard(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// Resolve returns the page for path and its wildcard values. ok is false when
// no page matches; the caller renders the landing page.
func (rt *Router) Resolve(path string) (page Page, params map[string]string, ok bool) {
	segs := splitPath(path)

	for _, p := range rt.pages {
		if len(p.segments) != len(segs) {
			continue
		}
		values := make(map[string]string)
		matched := true
		for i, s := range p.segments {
			if isWildcard(s) {
				if segs[i] == "" {
					matched = false
					break
				}
				values[strings.Trim(s, "{}")] = segs[i]
				continue
			}
			if s != segs[i] {
				matched = false
				break
			}
		}
		if matched {
			return p.Page, values, true
		}
	}
	return Page{}, nil, false
}

// Pages returns the page table in match order
func (rt *Router) Pages() []Page {
	out := make([]Page, len(rt.pages))
	for i, p := range rt.pages {
		out[i] = p.Page
	}
	return out
}

// LoginPathFor is where a visitor lacking role is sent
func LoginPathFor(role models.Role) string {
	if role == models.RoleTeacher {
		return TeacherLoginPath
	}
	return StudentLoginPath
}
