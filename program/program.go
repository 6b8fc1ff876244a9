package program

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	commentMarker   = "#"
	labelMarker     = ":"
	referenceMarker = "$"
)

var (
	ErrEmptyLabelName = errors.New("program: empty label name")
	ErrUnknownLabel   = errors.New("program: unknown label")
)

type Kind int

const (
	// KindToken is a raw token from the source, usually an opcode
	KindToken Kind = iota
	// KindAddress pushes a resolved label address
	KindAddress
)

// Instruction is one resolved element of a program.
type Instruction struct {
	Kind Kind
	Text string
	Addr int32
}

func Token(text string) Instruction {
	return Instruction{Kind: KindToken, Text: text}
}

func Address(addr int32) Instruction {
	return Instruction{Kind: KindAddress, Addr: addr}
}

func (i Instruction) String() string {
	if i.Kind == KindAddress {
		return "@ADDR:" + strconv.Itoa(int(i.Addr))
	}
	return i.Text
}

// Program is the output of loading source text. Labels are kept for
// introspection only, every reference is already resolved.
type Program struct {
	Instructions []Instruction
	Labels       map[string]int
}

func (p *Program) Len() int {
	return len(p.Instructions)
}

// Tokenize strips comments and splits src into whitespace separated tokens.
func Tokenize(src string) []string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, commentMarker); idx >= 0 {
			line = line[:idx]
		}
		lines[i] = line
	}
	// Fields drops empty tokens for us
	return strings.Fields(strings.Join(lines, " "))
}

// Resolve records label declarations and rewrites label references into
// address pushes. The label table is complete before any reference is
// rewritten so forward references work.
func Resolve(tokens []string) (*Program, error) {
	var (
		labels = make(map[string]int)
		instrs = make([]string, 0, len(tokens))
	)

	for _, tok := range tokens {
		if strings.HasPrefix(tok, labelMarker) {
			name := tok[len(labelMarker):]
			if name == "" {
				return nil, fmt.Errorf("declaration at address %d: %w", len(instrs), ErrEmptyLabelName)
			}
			// a later declaration silently replaces an earlier one
			labels[name] = len(instrs)
			continue
		}
		instrs = append(instrs, tok)
	}

	resolved := make([]Instruction, len(instrs))
	for i, tok := range instrs {
		if !strings.HasPrefix(tok, referenceMarker) {
			resolved[i] = Token(tok)
			continue
		}
		name := tok[len(referenceMarker):]
		addr, exists := labels[name]
		if !exists {
			return nil, fmt.Errorf("%w '%s' referenced at address %d", ErrUnknownLabel, name, i)
		}
		resolved[i] = Address(int32(addr))
	}

	return &Program{
		Instructions: resolved,
		Labels:       labels,
	}, nil
}

// Parse tokenizes and resolves src.
func Parse(src string) (*Program, error) {
	return Resolve(Tokenize(src))
}

// Listing renders one instruction per line, prefixed by its address, with
// label declarations on their own line above the instruction they name.
func (p *Program) Listing() string {
	byAddr := make(map[int][]string)
	for name, addr := range p.Labels {
		byAddr[addr] = append(byAddr[addr], name)
	}

	var b strings.Builder
	writeLabels := func(addr int) {
		names := byAddr[addr]
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "%s%s\n", labelMarker, name)
		}
	}

	for addr, inst := range p.Instructions {
		writeLabels(addr)
		fmt.Fprintf(&b, "%04d  %s", addr, inst)
		if inst.Kind == KindAddress {
			if names := byAddr[int(inst.Addr)]; len(names) > 0 {
				sort.Strings(names)
				fmt.Fprintf(&b, "  ; %s%s", referenceMarker, names[0])
			}
		}
		b.WriteString("\n")
	}
	// labels declared after the last instruction
	writeLabels(len(p.Instructions))
	return b.String()
}
