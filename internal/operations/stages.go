package operations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"cohortetl/internal/assembly"
	"cohortetl/internal/config"
	"cohortetl/internal/dimensions"
	apperrors "cohortetl/internal/errors"
	"cohortetl/internal/exporter"
	"cohortetl/internal/files"
	"cohortetl/internal/identity"
	"cohortetl/internal/sources"
	"cohortetl/internal/status"
	"cohortetl/internal/transform"
	"cohortetl/internal/validation"
	"cohortetl/pkg/contracts/domain"
)

// NewSteps wires the refresh steps in execution order.
// Sources are read from fs and the tables written to it; warehouse may be nil.
func NewSteps(cfg *config.Config, fs afero.Fs, warehouse exporter.Warehouse, logger *slog.Logger) []Step {
	fm := files.NewManager(fs)
	return []Step{
		NewLoadStep(validation.NewSourceValidator(fs, logger), sources.NewLoader(fs, cfg, logger)),
		NewResolveStep(identity.NewResolver(cfg, logger)),
		NewTransformStep(
			transform.NewAttendanceTransformer(cfg, logger),
			transform.NewAssessmentTransformer(cfg, logger),
			transform.NewParticipationTransformer(cfg, logger),
		),
		NewStatusStep(status.NewResolver(cfg, logger)),
		NewDimensionsStep(dimensions.NewBuilder(cfg, logger)),
		NewAssembleStep(assembly.NewAssembler(logger)),
		NewPublishStep(exporter.NewPublisher(fm, cfg.Output, warehouse, logger)),
	}
}

// LoadStep reads every configured cohort's sources
type LoadStep struct {
	BaseStage
	validator *validation.SourceValidator
	loader    *sources.Loader
}

// NewLoadStep creates the source loading step
func NewLoadStep(validator *validation.SourceValidator, loader *sources.Loader) *LoadStep {
	return &LoadStep{
		BaseStage: NewBaseStage(StepIDLoad, StepNameLoad),
		validator: validator,
		loader:    loader,
	}
}

// Validate requires at least one configured cohort
func (s *LoadStep) Validate(state *RunState) error {
	return s.require(state.Config != nil && len(state.Config.Cohorts) > 0, "cohort configuration")
}

// Execute checks that every source exists, then loads all of them
// concurrently. Any structural error aborts the run.
func (s *LoadStep) Execute(ctx context.Context, state *RunState) error {
	if err := s.validator.ValidateCohorts(state.Config.Cohorts); err != nil {
		return err
	}
	batch, err := s.loader.LoadAll(ctx, state.Config.Cohorts)
	if err != nil {
		return err
	}
	state.Batch = batch

	step := state.GetStep(s.ID())
	for _, kind := range domain.AllSourceKinds {
		step.SetMetadata(string(kind), len(batch.Kind(kind)))
	}
	return nil
}

// ResolveStep builds the learner directory and alias table
type ResolveStep struct {
	BaseStage
	resolver *identity.Resolver
}

// NewResolveStep creates the identity resolution step
func NewResolveStep(resolver *identity.Resolver) *ResolveStep {
	return &ResolveStep{
		BaseStage: NewBaseStage(StepIDResolve, StepNameResolve),
		resolver:  resolver,
	}
}

// Validate requires the loaded batch
func (s *ResolveStep) Validate(state *RunState) error {
	return s.require(state.Batch != nil, "source batch")
}

// Execute resolves identities; ambiguous names are reported, never merged
func (s *ResolveStep) Execute(ctx context.Context, state *RunState) error {
	dir, rejected := s.resolver.Resolve(state.Batch)
	state.Directory = dir
	state.Quality.Add(rejected...)

	step := state.GetStep(s.ID())
	step.SetMetadata("learners", dir.Len())
	step.SetMetadata("aliases", len(dir.Aliases()))
	step.SetMetadata("rejected", len(rejected))
	return nil
}

// TransformStep turns raw rows into attendance, assessment and participation facts
type TransformStep struct {
	BaseStage
	attendance    *transform.AttendanceTransformer
	assessment    *transform.AssessmentTransformer
	participation *transform.ParticipationTransformer
}

// NewTransformStep creates the fact transformation step
func NewTransformStep(att *transform.AttendanceTransformer, ass *transform.AssessmentTransformer, part *transform.ParticipationTransformer) *TransformStep {
	return &TransformStep{
		BaseStage:     NewBaseStage(StepIDTransform, StepNameTransform),
		attendance:    att,
		assessment:    ass,
		participation: part,
	}
}

// Validate requires the batch and the directory
func (s *TransformStep) Validate(state *RunState) error {
	if err := s.require(state.Batch != nil, "source batch"); err != nil {
		return err
	}
	return s.require(state.Directory != nil, "learner directory")
}

// Execute runs the three transformers in parallel. They share only the
// read-only directory and write disjoint results.
func (s *TransformStep) Execute(ctx context.Context, state *RunState) error {
	batch, dir := state.Batch, state.Directory

	var (
		att  transform.AttendanceResult
		ass  transform.AssessmentResult
		part transform.ParticipationResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		att = s.attendance.Transform(batch.Kind(domain.SourceAttendance), dir)
		return gctx.Err()
	})
	g.Go(func() error {
		records := append(append([]domain.RawRecord{}, batch.Kind(domain.SourceLab)...), batch.Kind(domain.SourceQuiz)...)
		ass = s.assessment.Transform(records, dir)
		return gctx.Err()
	})
	g.Go(func() error {
		part = s.participation.Transform(batch.Kind(domain.SourceParticipation), dir)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return err
	}

	state.Attendance, state.Assessments, state.Participation = att, ass, part
	state.Quality.Add(att.Rejected...)
	state.Quality.Add(ass.Rejected...)
	state.Quality.Add(part.Rejected...)

	step := state.GetStep(s.ID())
	step.SetMetadata(domain.TableFactAttendance, len(att.Facts))
	step.SetMetadata(domain.TableFactAssessment, len(ass.Facts))
	step.SetMetadata(domain.TableFactParticipation, len(part.Facts))
	step.SetMetadata("duplicates_collapsed", att.Collapsed)
	step.SetMetadata("scores_overwritten", ass.Overwritten)
	return nil
}

// StatusStep merges status rows across cohorts
type StatusStep struct {
	BaseStage
	resolver *status.Resolver
}

// NewStatusStep creates the status resolution step
func NewStatusStep(resolver *status.Resolver) *StatusStep {
	return &StatusStep{
		BaseStage: NewBaseStage(StepIDStatus, StepNameStatus),
		resolver:  resolver,
	}
}

// Validate requires the directory; facts may legitimately be empty
func (s *StatusStep) Validate(state *RunState) error {
	return s.require(state.Directory != nil, "learner directory")
}

// Execute resolves one status per learner key and the enrollment date of
// every identity in its cohort
func (s *StatusStep) Execute(ctx context.Context, state *RunState) error {
	records := state.Batch.Kind(domain.SourceStatus)
	activity := status.ActivityFrom(state.Attendance.Facts, state.Assessments.Facts, state.Participation.Facts)
	statuses, rejected := s.resolver.Resolve(records, state.Directory, activity)
	state.Statuses = statuses
	state.Identities = s.resolver.Enrollments(records, state.Directory, state.Attendance.Facts)
	state.Quality.Add(rejected...)

	state.GetStep(s.ID()).SetMetadata("learners", len(statuses))
	return nil
}

// DimensionsStep builds dim_learner, dim_date and dim_week
type DimensionsStep struct {
	BaseStage
	builder *dimensions.Builder
}

// NewDimensionsStep creates the dimension building step
func NewDimensionsStep(builder *dimensions.Builder) *DimensionsStep {
	return &DimensionsStep{
		BaseStage: NewBaseStage(StepIDDimensions, StepNameDimensions),
		builder:   builder,
	}
}

// Validate requires the directory and the statuses
func (s *DimensionsStep) Validate(state *RunState) error {
	if err := s.require(state.Identities != nil, "learner identities"); err != nil {
		return err
	}
	return s.require(state.Statuses != nil, "learner statuses")
}

// Execute builds the three dimensions from the facts and identities
func (s *DimensionsStep) Execute(ctx context.Context, state *RunState) error {
	state.Learners = s.builder.BuildLearners(state.Identities, state.Statuses)
	state.Dates = s.builder.BuildDates(dimensions.Dates(state.Attendance.Facts, state.Participation.Facts))
	state.Weeks = s.builder.BuildWeeks(state.Attendance.Facts, state.Assessments.Facts)

	step := state.GetStep(s.ID())
	step.SetMetadata(domain.TableDimLearner, len(state.Learners))
	step.SetMetadata(domain.TableDimDate, len(state.Dates))
	step.SetMetadata(domain.TableDimWeek, len(state.Weeks))
	return nil
}

// AssembleStep enforces referential integrity and produces the star schema
type AssembleStep struct {
	BaseStage
	assembler *assembly.Assembler
}

// NewAssembleStep creates the fact assembly step
func NewAssembleStep(assembler *assembly.Assembler) *AssembleStep {
	return &AssembleStep{
		BaseStage: NewBaseStage(StepIDAssemble, StepNameAssemble),
		assembler: assembler,
	}
}

// Validate requires the dimensions; any of them may be empty
func (s *AssembleStep) Validate(state *RunState) error {
	dims := state.GetStep(StepIDDimensions)
	return s.require(dims != nil && dims.GetStatus() == StepStatusCompleted, "dimensions")
}

// Execute removes dangling facts and attaches the ordered rejected-rows report
func (s *AssembleStep) Execute(ctx context.Context, state *RunState) error {
	schema, orphans := s.assembler.Assemble(assembly.Tables{
		Learners:      state.Learners,
		Dates:         state.Dates,
		Weeks:         state.Weeks,
		Attendance:    state.Attendance.Facts,
		Assessments:   state.Assessments.Facts,
		Participation: state.Participation.Facts,
	})
	state.Quality.Add(orphans...)
	schema.Rejected = state.Quality.Rows()

	if n := assembly.Dangling(schema); n > 0 {
		return apperrors.NewIntegrityError(fmt.Sprintf("%d dangling references after assembly", n))
	}
	state.Schema = schema

	step := state.GetStep(s.ID())
	step.SetMetadata("orphan_key", len(orphans))
	step.SetMetadata(domain.TableRejectedRows, len(schema.Rejected))
	return nil
}

// PublishStep writes every table atomically
type PublishStep struct {
	BaseStage
	publisher *exporter.Publisher
}

// NewPublishStep creates the publishing step
func NewPublishStep(publisher *exporter.Publisher) *PublishStep {
	return &PublishStep{
		BaseStage: NewBaseStage(StepIDPublish, StepNamePublish),
		publisher: publisher,
	}
}

// Validate requires the assembled schema
func (s *PublishStep) Validate(state *RunState) error {
	return s.require(state.Schema != nil, "star schema")
}

// Execute publishes the schema and the run manifest
func (s *PublishStep) Execute(ctx context.Context, state *RunState) error {
	manifest := exporter.NewManifest(state.ID, state.StartTime, state.Config.Attendance.ThresholdMinutes, state.Cohorts(), state.Schema)
	if err := s.publisher.Publish(ctx, state.Schema, manifest); err != nil {
		return err
	}
	state.GetStep(s.ID()).SetMetadata("target", s.publisher.Target())
	return nil
}
