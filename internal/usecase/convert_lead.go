package usecase

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

var errLoginNotProvisioned = errors.New("portal login not created")

// ConvertLeadUseCase turns a lead into a client. An existing client with the
// same email in the tenant is reused; otherwise a client, portal login and
// onboarding project are created. Rows persisted before a failing step are
// left in place.
type ConvertLeadUseCase struct {
	LeadRepo    LeadRepositoryInterface
	ClientRepo  ClientRepositoryInterface
	ProjectRepo ProjectRepositoryInterface
	HistoryRepo HistoryRepositoryInterface
	Provisioner LoginProvisioner
	Metrics     MetricsRecorder
	Now         func() time.Time
}

func NewConvertLeadUseCase(
	leadRepo LeadRepositoryInterface,
	clientRepo ClientRepositoryInterface,
	projectRepo ProjectRepositoryInterface,
	historyRepo HistoryRepositoryInterface,
	provisioner LoginProvisioner,
	metrics MetricsRecorder,
) *ConvertLeadUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &ConvertLeadUseCase{
		LeadRepo:    leadRepo,
		ClientRepo:  clientRepo,
		ProjectRepo: projectRepo,
		HistoryRepo: historyRepo,
		Provisioner: provisioner,
		Metrics:     metrics,
		Now:         time.Now,
	}
}

func (uc *ConvertLeadUseCase) Execute(ctx context.Context, input ConvertLeadInput) (*ConvertLeadOutput, error) {
	lead, err := uc.LeadRepo.FindByID(ctx, input.TenantID, input.LeadID)
	if err != nil {
		return nil, leadLookupError(err)
	}
	if lead.IsConverted() {
		return nil, &DomainError{Code: "LEAD_ALREADY_CONVERTED", Message: entity.ErrLeadAlreadyConverted.Error()}
	}

	logger := log.WithFields(log.Fields{"tenant_id": input.TenantID, "lead_id": lead.ID})

	existing, err := uc.ClientRepo.FindByEmail(ctx, input.TenantID, lead.Email)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to look up client", Err: err}
	}

	if existing != nil {
		if err := uc.LeadRepo.LinkClient(ctx, input.TenantID, lead.ID, existing.ID, entity.StatusConverted); err != nil {
			return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to link lead to client", Err: err}
		}
		out := &ConvertLeadOutput{ClientID: existing.ID, WasExisting: true}
		if w := uc.appendHistory(ctx, lead, input.ActorID); w != "" {
			out.Warnings = append(out.Warnings, w)
		}
		uc.Metrics.RecordConversion(true)
		logger.WithField("client_id", existing.ID).Info("lead linked to existing client")
		return out, nil
	}

	client, err := entity.NewClientFromLead(lead)
	if err != nil {
		return nil, &DomainError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}
	project := entity.NewInitialProject(client)
	out := &ConvertLeadOutput{ClientID: client.ID}

	wf := NewWorkflow("convert_lead")
	wf.AddStep("create_client", func(ctx context.Context) error {
		return uc.ClientRepo.Create(ctx, client)
	})
	wf.AddBestEffortStep("provision_login", func(ctx context.Context) error {
		if uc.Provisioner == nil {
			return errors.New("portal login provisioning not configured")
		}
		res := uc.Provisioner.ProvisionClientLogin(ctx, ProvisionLoginInput{
			ClientID: client.ID,
			Email:    client.Email,
			Phone:    client.Phone,
			Name:     client.Name,
		})
		if !res.Success {
			uc.Metrics.RecordBestEffortFailure("provision_login")
			if res.Error == "" {
				return errLoginNotProvisioned
			}
			return errors.New(res.Error)
		}
		out.LoginProvisioned = true
		if res.Error != "" {
			out.Warnings = append(out.Warnings, res.Error)
		}
		return nil
	})
	wf.AddStep("create_project", func(ctx context.Context) error {
		return uc.ProjectRepo.Create(ctx, project)
	})
	wf.AddStep("link_lead", func(ctx context.Context) error {
		return uc.LeadRepo.LinkClient(ctx, input.TenantID, lead.ID, client.ID, entity.StatusConverted)
	})

	if err := wf.Execute(ctx); err != nil {
		logger.WithError(err).WithField("completed", wf.Completed()).Error("lead conversion stopped")
		return nil, &TechnicalError{Code: "CONVERSION_FAILED", Message: "lead conversion failed", Err: err}
	}
	for _, w := range wf.Warnings() {
		out.Warnings = append(out.Warnings, w.Step+": "+w.Err.Error())
	}
	if w := uc.appendHistory(ctx, lead, input.ActorID); w != "" {
		out.Warnings = append(out.Warnings, w)
	}

	out.ProjectID = project.ID
	uc.Metrics.RecordConversion(false)
	logger.WithFields(log.Fields{"client_id": client.ID, "project_id": project.ID}).Info("lead converted to new client")
	return out, nil
}

func (uc *ConvertLeadUseCase) appendHistory(ctx context.Context, lead *entity.Lead, actorID string) string {
	entry := entity.NewHistoryEntry(lead.ID, entity.StatusPtr(lead.Status), entity.StatusConverted, actorID, uc.Now())
	if err := uc.HistoryRepo.Append(ctx, entry); err != nil {
		log.WithField("lead_id", lead.ID).WithError(err).Warn("conversion history not recorded")
		uc.Metrics.RecordBestEffortFailure("status_history")
		return "status history not recorded"
	}
	return ""
}
