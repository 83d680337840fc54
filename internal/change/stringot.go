package change

// Operational-transform helpers for the string topic's insert/delete
// reconciliation, ported from the original string-diff rewind rules: an
// insert/delete composed against an older version must be rewound through
// every change applied since that version before it can be applied to the
// current value.

func runeLen(s string) int { return len([]rune(s)) }

func runeSlice(s string, start, end int) string {
	r := []rune(s)
	if start < 0 {
		start = 0
	}
	if end > len(r) {
		end = len(r)
	}
	if start > end {
		start = end
	}
	return string(r[start:end])
}

func insertAt(old string, pos int, text string) (string, error) {
	r := []rune(old)
	if pos < 0 || pos > len(r) {
		return "", &InvalidChangeError{Reason: "insert position out of range"}
	}
	return string(r[:pos]) + text + string(r[pos:]), nil
}

func deleteAt(old string, pos int, text string) (string, error) {
	r := []rune(old)
	if pos < 0 || pos > len(r) {
		return "", &InvalidChangeError{Reason: "delete position out of range"}
	}
	tail := string(r[pos:])
	if len(tail) < len(text) || tail[:len(text)] != text {
		return "", &InvalidChangeError{Reason: "deleted text does not match string content at position"}
	}
	deletedRunes := runeLen(text)
	return string(r[:pos]) + string(r[pos+deletedRunes:]), nil
}

func extendDelete(deletion string, atPos int, insertedText string) string {
	return runeSlice(deletion, 0, atPos) + insertedText + runeSlice(deletion, atPos, runeLen(deletion))
}

type runeRange struct {
	start, length, startBase int
}

func (r runeRange) end() int { return r.start + r.length }

func (r runeRange) relativeTo(base int) runeRange {
	return runeRange{start: r.startBase + r.start - base, length: r.length, startBase: base}
}

func (r runeRange) overlaps(o runeRange) bool {
	if r.start <= o.start {
		return r.start+r.length > o.start
	}
	return o.overlaps(r)
}

func overlapRange(a, b runeRange) runeRange {
	if !a.overlaps(b) {
		return runeRange{}
	}
	start := a.start
	if b.start > start {
		start = b.start
	}
	aEnd, bEnd := a.end(), b.end()
	minEnd := aEnd
	if bEnd < minEnd {
		minEnd = bEnd
	}
	return runeRange{start: start, length: minEnd - start}
}

// adjustDelete reconciles a pending delete (currentStart, currentDelete)
// against an already-applied delete (appliedStart, appliedDelete), returning
// the surviving (position, deletion text).
func adjustDelete(appliedStart int, appliedDelete string, currentStart int, currentDelete string) (int, string) {
	d1 := runeRange{start: appliedStart, length: runeLen(appliedDelete)}
	d2 := runeRange{start: currentStart, length: runeLen(currentDelete)}

	if !d1.overlaps(d2) {
		if appliedStart < currentStart {
			return currentStart - d1.length, currentDelete
		}
		return currentStart, currentDelete
	}

	overlapRel := overlapRange(d1, d2).relativeTo(d2.start)
	newStart := appliedStart
	if currentStart < newStart {
		newStart = currentStart
	}
	newDelete := runeSlice(currentDelete, 0, overlapRel.start) + runeSlice(currentDelete, overlapRel.end(), runeLen(currentDelete))
	return newStart, newDelete
}

// rewindStep rewinds one pending edit, described by (pos, text, isDelete),
// through a single earlier applied change. It returns the updated
// (pos, text) and whether the pending edit degenerated to a no-op.
func rewindStep(pos int, text string, isDelete bool, earlier Change) (int, string, bool) {
	switch e := earlier.(type) {
	case *StringSet:
		if isDelete {
			return 0, "", false
		}
		return 0, text, false

	case *StringInsert:
		L := runeLen(e.Text)
		shifts := e.Pos < pos
		if isDelete {
			shifts = e.Pos <= pos
		}
		if shifts {
			return pos + L, text, false
		}
		if isDelete && e.Pos > pos && e.Pos < pos+runeLen(text) {
			return pos, extendDelete(text, e.Pos-pos, e.Text), false
		}
		return pos, text, false

	case *StringDelete:
		L := runeLen(e.Deletion)
		if !isDelete {
			if e.Pos < pos && e.Pos+L <= pos {
				return pos - L, text, false
			}
			if e.Pos < pos && e.Pos+L > pos {
				// deletion straddles the insertion cursor: drop the insert
				return e.Pos, text, true
			}
			return pos, text, false
		}
		newPos, newText := adjustDelete(e.Pos, e.Deletion, pos, text)
		return newPos, newText, false
	}
	return pos, text, false
}

// rewindThrough applies rewindStep across every change in order, stopping
// early (without panicking) if a pending insert degenerates.
func rewindThrough(pos int, text string, isDelete bool, through []Change) (int, string, bool) {
	dropped := false
	for _, ch := range through {
		pos, text, dropped = rewindStep(pos, text, isDelete, ch)
		if dropped {
			break
		}
	}
	return pos, text, dropped
}
