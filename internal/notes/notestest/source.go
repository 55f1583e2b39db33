// Package notestest provides deterministic randomness for note generator tests.
package notestest

// Source replays a fixed script of draws. IntN cycles through Ints and
// Float64 through Floats; an empty script yields zeros.
type Source struct {
	Ints   []int
	Floats []float64

	i, f int
}

// IntN returns the next scripted int. It panics if the script value is out
// of [0, n), since a real source could never return it.
func (s *Source) IntN(n int) int {
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[s.i%len(s.Ints)]
	s.i++
	if v < 0 || v >= n {
		panic("notestest: scripted int out of range")
	}
	return v
}

// Float64 returns the next scripted float.
func (s *Source) Float64() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.f%len(s.Floats)]
	s.f++
	return v
}

// Note returns the draws that make a generator with user id minimum lo and
// note minimum length minLen emit userID and note, in draw order.
// Every letter of note must be in a..zA..Z.
func Note(lo, userID, minLen int, note string) []int {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	ints := []int{userID - lo, len(note) - minLen}
	for i := 0; i < len(note); i++ {
		for j := 0; j < len(letters); j++ {
			if letters[j] == note[i] {
				ints = append(ints, j)
				break
			}
		}
	}
	return ints
}
