package repair

import (
	"fmt"
	"strings"
)

// Mode selects the repair strategy.
type Mode string

const (
	// ModeSingle tracks one pending element. Any element that is never
	// closed anywhere in the document is closed at the next tag boundary.
	ModeSingle Mode = "single"
	// ModeStack keeps an element stack. An unterminated element is a
	// container only when its first child is an element that is closed
	// explicitly; containers close when an enclosing, explicitly closed
	// element ends. Every other unterminated element is a leaf and closes
	// at the next boundary.
	ModeStack Mode = "stack"
)

// ParseMode turns a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSingle:
		return ModeSingle, nil
	case ModeStack:
		return ModeStack, nil
	}
	return "", fmt.Errorf("unknown repair mode %q", s)
}

// Insertion records one synthesized end tag. Offset is the byte offset in
// the repaired output where Text starts.
type Insertion struct {
	Offset int
	Text   string
}

// Repairer heals unterminated markup.
type Repairer struct {
	Mode Mode
}

// New returns a Repairer for the given mode.
func New(mode Mode) *Repairer {
	return &Repairer{Mode: mode}
}

// Repair runs the single-pending-slot repair over raw.
func Repair(raw string) string {
	out, _ := New(ModeSingle).RepairWithReport(raw)
	return out
}

// Repair returns the repaired stream.
func (r *Repairer) Repair(raw string) string {
	out, _ := r.RepairWithReport(raw)
	return out
}

// RepairWithReport returns the repaired stream along with every end tag
// that was synthesized, in output order.
func (r *Repairer) RepairWithReport(raw string) (string, []Insertion) {
	tokens := Tokenize(raw)
	w := &writer{known: closedNames(tokens)}
	w.out.Grow(len(raw) + len(raw)/16)

	if r.Mode == ModeSingle {
		w.single(tokens)
	} else {
		w.stack(tokens)
	}
	return w.out.String(), w.inserted
}

// closedNames collects the case-folded names of every end tag in the
// document.
func closedNames(tokens []Token) map[string]bool {
	known := make(map[string]bool)
	for _, t := range tokens {
		if t.Kind == TokenClose {
			known[strings.ToLower(t.Name)] = true
		}
	}
	return known
}

type writer struct {
	out      strings.Builder
	known    map[string]bool
	inserted []Insertion
}

func (w *writer) emit(s string) {
	w.out.WriteString(s)
}

func (w *writer) closeTag(name string) {
	tag := "</" + name + ">"
	w.inserted = append(w.inserted, Insertion{Offset: w.out.Len(), Text: tag})
	w.out.WriteString(tag)
}

func (w *writer) isKnown(name string) bool {
	return w.known[strings.ToLower(name)]
}

func (w *writer) single(tokens []Token) {
	pending := ""
	for _, t := range tokens {
		if t.boundary() {
			if pending != "" {
				w.closeTag(pending)
				pending = ""
			}
			if t.Kind == TokenOpen && !w.isKnown(t.Name) {
				pending = t.Name
			}
		}
		w.emit(t.Text)
	}
}

type element struct {
	name  string
	known bool
	leaf  bool
}

func (w *writer) stack(tokens []Token) {
	var open []element
	justOpened := false

	closeLeaf := func() {
		if n := len(open); n > 0 && !open[n-1].known && open[n-1].leaf {
			w.closeTag(open[n-1].name)
			open = open[:n-1]
		}
	}

	for _, t := range tokens {
		switch t.Kind {
		case TokenText:
			if strings.TrimSpace(t.Text) == "" {
				break
			}
			if justOpened {
				open[len(open)-1].leaf = true
			}
			justOpened = false
		case TokenComment:
			justOpened = false
		case TokenOpen:
			known := w.isKnown(t.Name)
			if justOpened && !known {
				// An unterminated first child means the parent holds no
				// closed structure of its own.
				open[len(open)-1].leaf = true
			}
			closeLeaf()
			open = append(open, element{name: t.Name, known: known})
			justOpened = !known
		case TokenSelfClosing:
			if justOpened && !w.isKnown(t.Name) {
				open[len(open)-1].leaf = true
			}
			closeLeaf()
			justOpened = false
		case TokenProcInst:
			closeLeaf()
			justOpened = false
		case TokenClose:
			closeLeaf()
			justOpened = false
			if idx := lastIndex(open, t.Name); idx >= 0 {
				for j := len(open) - 1; j > idx; j-- {
					if !open[j].known {
						w.closeTag(open[j].name)
					}
				}
				open = open[:idx]
			}
		}
		w.emit(t.Text)
	}
}

func lastIndex(open []element, name string) int {
	for i := len(open) - 1; i >= 0; i-- {
		if strings.EqualFold(open[i].name, name) {
			return i
		}
	}
	return -1
}
