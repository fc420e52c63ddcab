package models

import "strings"

var commentPrefixes = []string{"//", "#", "/*", "*", "--", "<!--"}

// LineCounts summarizes the changed lines of a diff.
type LineCounts struct {
	LinesAdded      int `json:"lines_added"`
	LinesDeleted    int `json:"lines_deleted"`
	CommentsAdded   int `json:"comments_added"`
	CommentsDeleted int `json:"comments_deleted"`
	BlanksAdded     int `json:"blanks_added"`
	BlanksDeleted   int `json:"blanks_deleted"`
}

// Add returns the sum of two line counts.
func (l LineCounts) Add(o LineCounts) LineCounts {
	return LineCounts{
		LinesAdded:      l.LinesAdded + o.LinesAdded,
		LinesDeleted:    l.LinesDeleted + o.LinesDeleted,
		CommentsAdded:   l.CommentsAdded + o.CommentsAdded,
		CommentsDeleted: l.CommentsDeleted + o.CommentsDeleted,
		BlanksAdded:     l.BlanksAdded + o.BlanksAdded,
		BlanksDeleted:   l.BlanksDeleted + o.BlanksDeleted,
	}
}

// ToDocument returns the document form of the line counts.
func (l LineCounts) ToDocument() Document {
	return Document{
		"lines_added":      l.LinesAdded,
		"lines_deleted":    l.LinesDeleted,
		"comments_added":   l.CommentsAdded,
		"comments_deleted": l.CommentsDeleted,
		"blanks_added":     l.BlanksAdded,
		"blanks_deleted":   l.BlanksDeleted,
	}
}

// CountLines counts added and deleted lines of a unified diff, separating blank and
// comment lines from code lines.
func CountLines(diff string) LineCounts {
	var counts LineCounts
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"):
			switch classifyLine(line[1:]) {
			case lineBlank:
				counts.BlanksAdded++
			case lineComment:
				counts.CommentsAdded++
			default:
				counts.LinesAdded++
			}
		case strings.HasPrefix(line, "-"):
			switch classifyLine(line[1:]) {
			case lineBlank:
				counts.BlanksDeleted++
			case lineComment:
				counts.CommentsDeleted++
			default:
				counts.LinesDeleted++
			}
		}
	}
	return counts
}

type lineKind int

const (
	lineCode lineKind = iota
	lineBlank
	lineComment
)

func classifyLine(content string) lineKind {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return lineBlank
	}
	for _, prefix := range commentPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return lineComment
		}
	}
	return lineCode
}

// FileDiff is the diff of a single file.
type FileDiff struct {
	OldPath     string
	NewPath     string
	AMode       string
	BMode       string
	Diff        string
	NewFile     bool
	RenamedFile bool
	DeletedFile bool
	LineCounts  LineCounts
}

// CodeDiff is the code-diff artifact of a merge request, referenced by code_diff_id.
type CodeDiff struct {
	ID              int
	MergeRequestIID int
	Files           []FileDiff
}

// NewCodeDiff builds a CodeDiff artifact from provider diff records.
func NewCodeDiff(id, mrIID int, records []DiffRecord) CodeDiff {
	files := make([]FileDiff, 0, len(records))
	for _, rec := range records {
		files = append(files, FileDiff{
			OldPath:     rec.OldPath,
			NewPath:     rec.NewPath,
			AMode:       rec.AMode,
			BMode:       rec.BMode,
			Diff:        rec.Diff,
			NewFile:     rec.NewFile,
			RenamedFile: rec.RenamedFile,
			DeletedFile: rec.DeletedFile,
			LineCounts:  CountLines(rec.Diff),
		})
	}
	return CodeDiff{ID: id, MergeRequestIID: mrIID, Files: files}
}

// LineCounts returns the totals over all files of the artifact.
func (d CodeDiff) LineCounts() LineCounts {
	var total LineCounts
	for _, f := range d.Files {
		total = total.Add(f.LineCounts)
	}
	return total
}

// FileDocuments returns the per-file documents of the artifact.
func (d CodeDiff) FileDocuments() []Document {
	docs := make([]Document, 0, len(d.Files))
	for _, f := range d.Files {
		doc := Document{
			"old_path":     f.OldPath,
			"new_path":     f.NewPath,
			"a_mode":       f.AMode,
			"b_mode":       f.BMode,
			"diff":         f.Diff,
			"new_file":     f.NewFile,
			"renamed_file": f.RenamedFile,
			"deleted_file": f.DeletedFile,
		}
		for k, v := range f.LineCounts.ToDocument() {
			doc[k] = v
		}
		docs = append(docs, doc)
	}
	return docs
}

// ToDocument returns the document form of the code diff.
func (d CodeDiff) ToDocument() Document {
	return Document{
		"artif_id": d.ID,
		"mr_iid":   d.MergeRequestIID,
		"diffs":    d.FileDocuments(),
	}
}
