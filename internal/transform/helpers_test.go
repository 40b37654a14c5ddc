package transform

import (
	"time"

	"cohortetl/internal/config"
	"cohortetl/internal/identity"
	"cohortetl/pkg/contracts/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func zoomRecord(rel string, row int, name, email, duration string) domain.RawRecord {
	return domain.RawRecord{
		SourceKind: domain.SourceAttendance,
		Cohort:     "C1",
		Track:      "data",
		Fields: map[string]string{
			"Name":     name,
			"Email":    email,
			"Duration": duration,
		},
		OriginPath: "/zoom/" + rel,
		Root:       "/zoom",
		Row:        row,
	}
}

func directory(cfg *config.Config, records ...domain.RawRecord) *identity.Directory {
	batch := domain.NewBatch()
	for _, r := range records {
		batch.Add(r.SourceKind, r)
	}
	d, _ := identity.NewResolver(cfg, nil).Resolve(batch)
	return d
}
