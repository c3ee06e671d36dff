package mappers

import (
	"github.com/jmoiron/sqlx"

	"github.com/jbrpriv/RentifyPro-sub000/database"
	"github.com/jbrpriv/RentifyPro-sub000/model"
)

// AgreementView is the detail payload the surrounding application renders:
// the agreement itself plus its schedule, rollup and audit trail.
type AgreementView struct {
	model.Agreement
	Schedule []model.RentScheduleEntry `json:"rentSchedule"`
	Summary  model.ScheduleSummary     `json:"scheduleSummary"`
	AuditLog []model.AuditEntry        `json:"auditLog"`
}

// ToAgreementView assembles the detail view for one agreement.
func ToAgreementView(db *sqlx.DB, a *model.Agreement) (*AgreementView, error) {
	entries, err := database.GetSchedule(db, a.ID)
	if err != nil {
		return nil, err
	}
	summary, err := database.GetScheduleSummary(db, a.ID)
	if err != nil {
		return nil, err
	}
	audit, err := database.ListAudit(db, a.ID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.RentScheduleEntry{}
	}
	if audit == nil {
		audit = []model.AuditEntry{}
	}
	return &AgreementView{
		Agreement: *a,
		Schedule:  entries,
		Summary:   *summary,
		AuditLog:  audit,
	}, nil
}
