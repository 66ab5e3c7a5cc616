// Package report exports a learner's progress as a spreadsheet.
package report

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-learn/internal/access"
	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

const (
	LessonsSheet   = "Lessons"
	ExercisesSheet = "Exercises"
)

var (
	lessonHeader   = []any{"Grade", "Topic", "#", "Lesson", "Premium", "State", "Completed", "Best Score", "Best %"}
	exerciseHeader = []any{"Exercise", "Score", "Total", "%", "Result", "Completed At"}
)

// WriteXLSX writes a workbook with one row per curriculum lesson and one row
// per recorded exercise score.
func WriteXLSX(w io.Writer, c content.Curriculum, p progress.UserProgress, exercises access.ExerciseLister) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", LessonsSheet); err != nil {
		return fmt.Errorf("naming lessons sheet: %w", err)
	}
	if _, err := f.NewSheet(ExercisesSheet); err != nil {
		return fmt.Errorf("creating exercises sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	lessons := [][]any{lessonHeader}
	for _, g := range c.Grades {
		for _, t := range g.Topics {
			for i, l := range t.Lessons {
				avail := access.LessonAvailability(t, i, p)
				row := []any{g.Name, t.Name, i + 1, l.Title, yesNo(l.IsPremium), string(avail.State), yesNo(avail.Completed), "", ""}
				if exercises != nil {
					if s, ok := access.BestScore(p, exercises(l.ID)); ok {
						row[7] = fmt.Sprintf("%d/%d", s.Score, s.Total)
						row[8] = assessment.Percent(s.Score, s.Total)
					}
				}
				lessons = append(lessons, row)
			}
		}
	}

	ids := make([]string, 0, len(p.ExerciseScores))
	for id := range p.ExerciseScores {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	scores := [][]any{exerciseHeader}
	for _, id := range ids {
		s := p.ExerciseScores[id]
		sum := assessment.Summarize(s.Score, s.Total)
		scores = append(scores, []any{id, s.Score, s.Total, sum.Percentage, sum.Message, s.CompletedAt.UTC().Format(time.RFC3339)})
	}

	if err := writeSheet(f, LessonsSheet, lessons, bold); err != nil {
		return err
	}
	if err := writeSheet(f, ExercisesSheet, scores, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	last, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 18)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
