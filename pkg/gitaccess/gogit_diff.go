package gitaccess

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type lineOp struct {
	origin byte
	text   string
}

// lineOps produces a line-level edit script from old to new.
func lineOps(oldText, newText string) []lineOp {
	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	var ops []lineOp

	for _, d := range diffs {
		origin := OriginContext

		switch d.Type {
		case diffmatchpatch.DiffInsert:
			origin = OriginAddition
		case diffmatchpatch.DiffDelete:
			origin = OriginDeletion
		case diffmatchpatch.DiffEqual:
		}

		for _, line := range splitKeepNewline(d.Text) {
			ops = append(ops, lineOp{origin: origin, text: line})
		}
	}

	return ops
}

func splitKeepNewline(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

// buildHunks groups an edit script into unified-diff hunks with the given
// amount of context. Changes separated by at most 2*context unchanged lines
// share a hunk.
func buildHunks(ops []lineOp, context int) []Hunk {
	if context < 0 {
		context = 0
	}

	// oldBefore[i] and newBefore[i] count the lines of each side before ops[i].
	oldBefore := make([]int, len(ops)+1)
	newBefore := make([]int, len(ops)+1)

	var changes []int

	for i, op := range ops {
		oldBefore[i+1] = oldBefore[i]
		newBefore[i+1] = newBefore[i]

		if op.origin != OriginAddition {
			oldBefore[i+1]++
		}

		if op.origin != OriginDeletion {
			newBefore[i+1]++
		}

		if op.origin != OriginContext {
			changes = append(changes, i)
		}
	}

	if len(changes) == 0 {
		return nil
	}

	var hunks []Hunk

	start := max(changes[0]-context, 0)
	last := changes[0]

	for _, idx := range changes[1:] {
		if idx-last-1 > 2*context {
			hunks = append(hunks, makeHunk(ops, oldBefore, newBefore, start, min(last+context+1, len(ops))))
			start = max(idx-context, 0)
		}

		last = idx
	}

	hunks = append(hunks, makeHunk(ops, oldBefore, newBefore, start, min(last+context+1, len(ops))))

	return hunks
}

func makeHunk(ops []lineOp, oldBefore, newBefore []int, start, end int) Hunk {
	hunk := Hunk{
		OldStart: oldBefore[start],
		OldLines: oldBefore[end] - oldBefore[start],
		NewStart: newBefore[start],
		NewLines: newBefore[end] - newBefore[start],
		Lines:    make([]Line, 0, end-start),
	}

	// A side with lines starts at its first line; an empty side keeps the
	// number of the line it follows.
	if hunk.OldLines > 0 {
		hunk.OldStart++
	}

	if hunk.NewLines > 0 {
		hunk.NewStart++
	}

	for _, op := range ops[start:end] {
		hunk.Lines = append(hunk.Lines, Line{Origin: op.origin, Content: []byte(op.text)})
	}

	return hunk
}
