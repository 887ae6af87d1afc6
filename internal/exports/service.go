package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/quartermasterhq/quartermaster-backend/internal/roles"
	"github.com/quartermasterhq/quartermaster-backend/pkg/config"
	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
	"github.com/quartermasterhq/quartermaster-backend/pkg/enums"
	pkgerrors "github.com/quartermasterhq/quartermaster-backend/pkg/errors"
	"github.com/quartermasterhq/quartermaster-backend/pkg/logger"
	"github.com/quartermasterhq/quartermaster-backend/pkg/metrics"
)

const (
	jobInventoryReport = "export_inventory_csv"
	jobDamageReport    = "export_damage_csv"
)

type itemSource interface {
	ListAllByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Item, error)
}

type objectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	DeletePrefix(ctx context.Context, prefix string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Artifact is one generated report file.
type Artifact struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	URL  string `json:"url"`
}

// Result lists the artifacts an export run produced.
type Result struct {
	TeamID    uuid.UUID  `json:"team_id"`
	Artifacts []Artifact `json:"artifacts"`
}

// Service builds downloadable team reports.
type Service interface {
	Run(ctx context.Context, actorID, teamID uuid.UUID) (*Result, error)
}

type service struct {
	items      itemSource
	roles      roles.Authorizer
	store      objectStore
	jobs       *metrics.JobMetrics
	logg       *logger.Logger
	timeout    time.Duration
	presignTTL time.Duration
}

// NewService builds the exports service with the provided dependencies.
func NewService(items itemSource, authorizer roles.Authorizer, store objectStore, jobs *metrics.JobMetrics, logg *logger.Logger, cfg config.ExportConfig, presignTTL time.Duration) (Service, error) {
	if items == nil {
		return nil, fmt.Errorf("item source required")
	}
	if authorizer == nil {
		return nil, fmt.Errorf("authorizer required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &service{
		items:      items,
		roles:      authorizer,
		store:      store,
		jobs:       jobs,
		logg:       logg,
		timeout:    timeout,
		presignTTL: presignTTL,
	}, nil
}

// Run clears the team's document prefix and regenerates the inventory
// and damage reports concurrently. A run fails only when every
// artifact fails; partial output is returned with the failures logged.
func (s *service) Run(ctx context.Context, actorID, teamID uuid.UUID) (*Result, error) {
	decision, err := s.roles.Authorize(ctx, actorID, teamID, roles.PermReportsView)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, decision.Reason)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx = s.logg.WithTeamID(ctx, teamID.String())

	prefix := documentPrefix(teamID)
	if err := s.store.DeletePrefix(ctx, prefix); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear document prefix")
	}

	items, err := s.items.ListAllByTeam(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load team items")
	}

	type job struct {
		name  string
		label string
		build func([]models.Item) ([]byte, error)
	}
	jobs := []job{
		{name: "inventory.csv", label: jobInventoryReport, build: buildInventoryCSV},
		{name: "damage_reports.csv", label: jobDamageReport, build: buildDamageCSV},
	}

	artifacts := make([]Artifact, len(jobs))
	failures := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			started := time.Now()

			key := prefix + j.name
			err := s.generate(ctx, key, j.build, items)
			s.jobs.ObserveDuration(j.label, time.Since(started))
			if err != nil {
				s.jobs.IncFailure(j.label)
				failures[i] = fmt.Errorf("%s: %w", j.name, err)
				return
			}
			s.jobs.IncSuccess(j.label)
			artifacts[i] = Artifact{Name: j.name, Key: key}
		}(i, j)
	}
	wg.Wait()

	var produced []Artifact
	var failed error
	for i := range jobs {
		if failures[i] != nil {
			failed = multierr.Append(failed, failures[i])
			continue
		}
		produced = append(produced, artifacts[i])
	}

	if len(produced) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, failed, "export failed")
	}
	if failed != nil {
		s.logg.Error(ctx, "export completed with partial failures", failed)
	}

	for i := range produced {
		url, err := s.store.PresignGet(ctx, produced[i].Key, s.presignTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "presign report")
		}
		produced[i].URL = url
	}

	return &Result{TeamID: teamID, Artifacts: produced}, nil
}

func (s *service) generate(ctx context.Context, key string, build func([]models.Item) ([]byte, error), items []models.Item) error {
	body, err := build(items)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, key, body, "text/csv")
}

func buildInventoryCSV(items []models.Item) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"product_name", "actual_name", "nsn", "liin", "serial_number", "quantity", "auth_quantity", "status", "is_kit", "description"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i := range items {
		row := []string{
			items[i].ProductName,
			deref(items[i].ActualName),
			deref(items[i].NSN),
			deref(items[i].LIIN),
			deref(items[i].SerialNumber),
			strconv.Itoa(items[i].Quantity),
			strconv.Itoa(items[i].AuthQuantity),
			items[i].Status.String(),
			strconv.FormatBool(items[i].IsKit),
			deref(items[i].Description),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// buildDamageCSV lays out shortages and damage in DA-2404 column
// order: item, NSN, status, fault description.
func buildDamageCSV(items []models.Item) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"item", "nsn", "serial_number", "status", "deficiency"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i := range items {
		switch items[i].Status {
		case enums.ItemStatusDamaged:
			reports := items[i].DamageReports
			if len(reports) == 0 {
				reports = []string{""}
			}
			for _, report := range reports {
				row := []string{
					items[i].ProductName,
					deref(items[i].NSN),
					deref(items[i].SerialNumber),
					items[i].Status.String(),
					report,
				}
				if err := w.Write(row); err != nil {
					return nil, err
				}
			}
		case enums.ItemStatusMissing:
			row := []string{
				items[i].ProductName,
				deref(items[i].NSN),
				deref(items[i].SerialNumber),
				items[i].Status.String(),
				"",
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func documentPrefix(teamID uuid.UUID) string {
	return fmt.Sprintf("Documents/%s/", teamID)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
