package vm

import "sort"

// Memory is the sparse cell store addressed by '@' and '!'. Addresses that
// were never written read as zero. Entries are never removed.
type Memory struct {
	data map[int32]int32
}

func NewMemory() *Memory {
	return &Memory{
		data: make(map[int32]int32),
	}
}

func (m *Memory) Load(addr int32) int32 {
	return m.data[addr]
}

func (m *Memory) Store(addr, v int32) {
	m.data[addr] = v
}

func (m *Memory) Len() int {
	return len(m.data)
}

// Snapshot copies every written cell.
func (m *Memory) Snapshot() map[int32]int32 {
	out := make(map[int32]int32, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// Addresses lists written addresses in ascending order.
func (m *Memory) Addresses() []int32 {
	out := make([]int32, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
