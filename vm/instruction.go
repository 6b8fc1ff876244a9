package vm

import "regexp"

type Opcode byte

const (
	OpAdd     Opcode = '+'
	OpSub     Opcode = '-'
	OpDouble  Opcode = '*'
	OpHalve   Opcode = '/'
	OpLoad    Opcode = '@'
	OpStore   Opcode = '!'
	OpCall    Opcode = '&'
	OpReturn  Opcode = ';'
	OpToR     Opcode = '>'
	OpFromR   Opcode = '<'
	OpBranch  Opcode = '?'
	OpHalt    Opcode = '^'
	OpEmit    Opcode = '.'
	OpReadKey Opcode = ','
)

var opcodeNames = map[Opcode]string{
	OpAdd:     "add",
	OpSub:     "sub",
	OpDouble:  "double",
	OpHalve:   "halve",
	OpLoad:    "load",
	OpStore:   "store",
	OpCall:    "call",
	OpReturn:  "return",
	OpToR:     "to-r",
	OpFromR:   "from-r",
	OpBranch:  "branch",
	OpHalt:    "halt",
	OpEmit:    "emit",
	OpReadKey: "key",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "unknown"
}

// decodeOpcode maps a single character token to its opcode.
func decodeOpcode(tok string) (Opcode, bool) {
	if len(tok) != 1 {
		return 0, false
	}
	op := Opcode(tok[0])
	_, ok := opcodeNames[op]
	return op, ok
}

var integerLiteral = regexp.MustCompile(`^[+-]?[0-9]+$`)

func isIntegerLiteral(tok string) bool {
	return integerLiteral.MatchString(tok)
}
