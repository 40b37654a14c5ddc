package transform

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cohortetl/internal/config"
	"cohortetl/internal/identity"
	"cohortetl/internal/normalize"
	"cohortetl/pkg/contracts/domain"
)

// AssessmentResult is the output of the assessment transformer
type AssessmentResult struct {
	Facts    []domain.AssessmentFact
	Rejected []domain.RejectedRow
	// Overwritten counts scores replaced by a later row for the same key
	Overwritten int
}

// AssessmentTransformer reshapes wide lab and quiz sheets into long facts
type AssessmentTransformer struct {
	weekColumn *regexp.Regexp
	cols       identity.Columns
	logger     *slog.Logger
}

// NewAssessmentTransformer creates the transformer from a validated configuration
func NewAssessmentTransformer(cfg *config.Config, logger *slog.Logger) *AssessmentTransformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssessmentTransformer{
		weekColumn: regexp.MustCompile(cfg.Assessment.WeekColumnPattern),
		cols:       identity.ColumnsFor(cfg, domain.SourceLab),
		logger:     logger.With(slog.String("component", "assessment_transformer")),
	}
}

type assessmentKey struct {
	learnerKey string
	week       int
	typ        domain.AssessmentType
}

// weekColumn is a parsed score column header
type weekColumn struct {
	header string
	week   int
	typ    domain.AssessmentType
}

// Transform emits one fact per (learner, week, type) with a score.
// Empty and null-like cells mean "no submission" and produce no fact.
// Rows are applied in order, so a later row for the same key replaces the
// earlier score.
func (t *AssessmentTransformer) Transform(records []domain.RawRecord, dir *identity.Directory) AssessmentResult {
	var result AssessmentResult
	index := make(map[assessmentKey]int)

	for _, rec := range records {
		learner, rej := dir.Identify(rec, t.cols)
		if rej != nil {
			rej.Table = domain.TableFactAssessment
			result.Rejected = append(result.Rejected, *rej)
			continue
		}
		track := learner.Track
		if track == "" {
			track = rec.Track
		}

		for _, col := range t.columns(rec) {
			score, ok, err := normalize.Score(rec.Fields[col.header])
			if err != nil {
				r := domain.NewRejectedRow(domain.ReasonInvalidValue, rec.Ref(), learner.DisplayName,
					fmt.Sprintf("%s: %v", col.header, err))
				r.Table = domain.TableFactAssessment
				result.Rejected = append(result.Rejected, r)
				continue
			}
			if !ok {
				continue
			}

			fact := domain.AssessmentFact{
				AssessmentID: AssessmentID(learner.LearnerKey, col.week, col.typ),
				LearnerKey:   learner.LearnerKey,
				Cohort:       rec.Cohort,
				Track:        track,
				WeekNumber:   col.week,
				WeekKey:      WeekKey(rec.Cohort, track, col.week),
				Type:         col.typ,
				Score:        score,
				Source:       rec.Ref(),
			}
			key := assessmentKey{learner.LearnerKey, col.week, col.typ}
			if i, exists := index[key]; exists {
				result.Facts[i] = fact
				result.Overwritten++
				t.logger.Debug("Assessment score overwritten by later row",
					slog.String("learner_key", learner.LearnerKey),
					slog.Int("week", col.week),
					slog.String("type", string(col.typ)),
					slog.String("origin_path", rec.OriginPath),
					slog.Int("row", rec.Row))
				continue
			}
			index[key] = len(result.Facts)
			result.Facts = append(result.Facts, fact)
		}
	}

	sort.SliceStable(result.Facts, func(i, j int) bool {
		a, b := result.Facts[i], result.Facts[j]
		if a.Cohort != b.Cohort {
			return a.Cohort < b.Cohort
		}
		if a.WeekNumber != b.WeekNumber {
			return a.WeekNumber < b.WeekNumber
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.LearnerKey < b.LearnerKey
	})

	t.logger.Info("Assessments transformed",
		slog.Int("rows", len(records)),
		slog.Int("facts", len(result.Facts)),
		slog.Int("overwritten", result.Overwritten),
		slog.Int("rejected", len(result.Rejected)))

	return result
}

// columns returns the record's score columns ordered by week and type.
// An explicit lab/quiz suffix decides the type; otherwise the sheet does.
func (t *AssessmentTransformer) columns(rec domain.RawRecord) []weekColumn {
	defaultType := domain.AssessmentLab
	if rec.SourceKind == domain.SourceQuiz {
		defaultType = domain.AssessmentQuiz
	}

	var cols []weekColumn
	for header := range rec.Fields {
		m := t.weekColumn.FindStringSubmatch(header)
		if m == nil {
			continue
		}
		week, err := strconv.Atoi(m[1])
		if err != nil || week <= 0 {
			continue
		}
		typ := defaultType
		if len(m) > 2 {
			switch strings.ToLower(m[2]) {
			case "lab":
				typ = domain.AssessmentLab
			case "quiz":
				typ = domain.AssessmentQuiz
			}
		}
		cols = append(cols, weekColumn{header: header, week: week, typ: typ})
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].week != cols[j].week {
			return cols[i].week < cols[j].week
		}
		if cols[i].typ != cols[j].typ {
			return cols[i].typ < cols[j].typ
		}
		return cols[i].header < cols[j].header
	})
	return cols
}
