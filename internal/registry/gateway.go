package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/registry-scheduling/internal/datetime"
	"github.com/hackgods/registry-scheduling/internal/domain"
)

// PatientQuery holds structured patient search criteria; any subset may be set.
type PatientQuery struct {
	Phone      string
	LastName   string
	FirstName  string
	MiddleName string
	BirthYear  int
	Policy     string
	FacilityID string
}

func (q PatientQuery) empty() bool {
	return q.Phone == "" && q.LastName == "" && q.FirstName == "" &&
		q.MiddleName == "" && q.BirthYear == 0 && q.Policy == ""
}

type GatewayConfig struct {
	Location        *time.Location
	CancelSupported bool
}

// Gateway maps scheduling operations onto registry RPC calls and normalizes
// their responses into domain types.
type Gateway struct {
	transport       Transport
	tokens          *TokenManager
	loc             *time.Location
	cancelSupported bool
	now             func() time.Time
	logger          zerolog.Logger
}

func NewGateway(t Transport, tokens *TokenManager, cfg GatewayConfig, logger zerolog.Logger) *Gateway {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Gateway{
		transport:       t,
		tokens:          tokens,
		loc:             loc,
		cancelSupported: cfg.CancelSupported,
		now:             time.Now,
		logger:          logger.With().Str("component", "registry_gateway").Logger(),
	}
}

// Location is the zone registry dates without an offset are read in.
func (g *Gateway) Location() *time.Location { return g.loc }

// call attaches a valid token; a rejected token is refreshed and the call
// retried once, which is safe because the registry did not process it.
func (g *Gateway) call(ctx context.Context, method string, in any, out response) error {
	tok, err := g.tokens.Token(ctx, false)
	if err != nil {
		return err
	}

	err = g.transport.Call(ctx, method, tok.Value, in, out)
	if errors.Is(err, ErrUnauthorized) {
		g.logger.Warn().Str("method", method).Msg("registry rejected token, refreshing")
		g.tokens.Clear()
		tok, err = g.tokens.Token(ctx, true)
		if err != nil {
			return err
		}
		err = g.transport.Call(ctx, method, tok.Value, in, out)
	}
	if err != nil {
		return err
	}
	return out.failure(method)
}

func (g *Gateway) ListDistricts(ctx context.Context) ([]domain.District, error) {
	var resp districtListResponse
	if err := g.call(ctx, methodDistricts, struct{}{}, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.District, 0, len(resp.Districts))
	for _, d := range resp.Districts {
		out = append(out, domain.District{ID: d.IDDistrict.String(), Name: strings.TrimSpace(d.DistrictName)})
	}
	return out, nil
}

func (g *Gateway) ListFacilities(ctx context.Context, districtID string) ([]domain.Facility, error) {
	var resp facilityListResponse
	if err := g.call(ctx, methodFacilities, facilityListRequest{IDDistrict: districtID}, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Facility, 0, len(resp.Clinics))
	for _, c := range resp.Clinics {
		district := c.IDDistrict.String()
		if district == "" {
			district = districtID
		}
		out = append(out, domain.Facility{
			ID:         c.IDLPU.String(),
			Name:       strings.TrimSpace(c.LPUName),
			Address:    strings.TrimSpace(c.Address),
			DistrictID: district,
		})
	}
	return out, nil
}

func (g *Gateway) ListSpecialties(ctx context.Context, facilityID string) ([]domain.Specialty, error) {
	var resp specialtyListResponse
	if err := g.call(ctx, methodSpecialties, specialtyListRequest{IDLpu: facilityID}, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Specialty, 0, len(resp.Specialities))
	for _, s := range resp.Specialities {
		out = append(out, domain.Specialty{
			ID:        s.IDSpesiality.String(),
			Name:      strings.TrimSpace(s.NameSpesiality),
			FreeSlots: s.CountFreeTicket,
		})
	}
	return out, nil
}

func (g *Gateway) ListDoctors(ctx context.Context, facilityID, specialtyID string) ([]domain.Doctor, error) {
	var resp doctorListResponse
	req := doctorListRequest{IDSpesiality: specialtyID, IDLpu: facilityID}
	if err := g.call(ctx, methodDoctors, req, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Doctor, 0, len(resp.Doctors))
	for _, d := range resp.Doctors {
		out = append(out, domain.Doctor{
			ID:        d.IDDoc.String(),
			Name:      strings.TrimSpace(d.Name),
			FreeSlots: d.CountFreeTicket,
		})
	}
	return out, nil
}

// ListSlots returns free slots of a doctor between from and to (dates only).
func (g *Gateway) ListSlots(ctx context.Context, facilityID, doctorID string, from, to time.Time) ([]domain.Slot, error) {
	var resp availableResponse
	req := availableRequest{
		IDDoc:      doctorID,
		IDLpu:      facilityID,
		VisitStart: from.In(g.loc).Format(registryDateOnlyLayout),
		VisitEnd:   to.In(g.loc).Format(registryDateOnlyLayout),
	}
	if err := g.call(ctx, methodAvailable, req, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Slot, 0, len(resp.Appointments))
	for _, a := range resp.Appointments {
		slot := domain.Slot{
			ID:         a.IDAppointment.String(),
			DoctorID:   doctorID,
			FacilityID: facilityID,
			Address:    strings.TrimSpace(a.Address),
			Room:       strings.TrimSpace(a.Room),
			Ticket:     a.Num.String(),
		}
		slot.StartsAt, slot.DateTime = g.decodeTime(a.VisitStart, "slot", slot.ID)
		out = append(out, slot)
	}
	return out, nil
}

// ReserveSlot books slotID for patientID. A TransportError here leaves the
// outcome unknown; callers must not retry blindly.
func (g *Gateway) ReserveSlot(ctx context.Context, facilityID, slotID, patientID string) error {
	var resp reserveResponse
	req := reserveRequest{IDAppointment: slotID, IDLpu: facilityID, IDPat: patientID}
	return g.call(ctx, methodReserve, req, &resp)
}

func (g *Gateway) SearchPatients(ctx context.Context, q PatientQuery) ([]domain.Patient, error) {
	if q.empty() {
		return nil, &domain.ValidationError{Op: methodSearchPatient, Reason: "at least one patient search criterion is required"}
	}

	var resp searchPatientResponse
	req := searchPatientRequest{
		Pat: wirePatientQuery{
			CellPhone:  q.Phone,
			Surname:    q.LastName,
			Name:       q.FirstName,
			SecondName: q.MiddleName,
			BirthYear:  q.BirthYear,
			Polis:      q.Policy,
		},
		IDLpu: q.FacilityID,
	}
	if err := g.call(ctx, methodSearchPatient, req, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Patient, 0, len(resp.Patients))
	for _, p := range resp.Patients {
		birth, _ := g.decodeTime(p.Birthday, "birthday", p.IDPat.String())
		out = append(out, domain.Patient{
			ID:         p.IDPat.String(),
			LastName:   strings.TrimSpace(p.Surname),
			FirstName:  strings.TrimSpace(p.Name),
			MiddleName: strings.TrimSpace(p.SecondName),
			BirthDate:  birth,
			Phone:      strings.TrimSpace(p.CellPhone),
		})
	}
	return out, nil
}

// ListPatientAppointments returns the registry's booked visits for a patient.
func (g *Gateway) ListPatientAppointments(ctx context.Context, facilityID, patientID string) ([]domain.Appointment, error) {
	var resp historyResponse
	if err := g.call(ctx, methodPatientHistory, historyRequest{IDPat: patientID, IDLpu: facilityID}, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Appointment, 0, len(resp.Items))
	for _, h := range resp.Items {
		facility := h.IDLpu.String()
		if facility == "" {
			facility = facilityID
		}
		appt := domain.Appointment{
			Slot: domain.Slot{
				ID:         h.IDAppointment.String(),
				Specialty:  strings.TrimSpace(h.NameSpesiality),
				DoctorID:   h.IDDoc.String(),
				DoctorName: strings.TrimSpace(h.DocName),
				FacilityID: facility,
				Address:    strings.TrimSpace(h.Address),
				Room:       strings.TrimSpace(h.Room),
				Ticket:     h.Num.String(),
			},
			ProfileID: patientID,
			Status:    domain.StatusBooked,
		}
		appt.StartsAt, appt.DateTime = g.decodeTime(h.VisitStart, "history", appt.ID)
		out = append(out, appt)
	}
	return out, nil
}

func (g *Gateway) CancelAppointment(ctx context.Context, facilityID, patientID, appointmentID string) error {
	if !g.cancelSupported {
		return &domain.UnsupportedOperationError{Op: "appointment cancellation"}
	}
	var resp refusalResponse
	req := refusalRequest{IDLpu: facilityID, IDPat: patientID, IDAppointment: appointmentID}
	return g.call(ctx, methodClaimForRefusal, req, &resp)
}

// decodeTime converts a raw registry date. On failure the raw text is kept
// and the instant left zero so downstream filters can fail open.
func (g *Gateway) decodeTime(t Time, field, id string) (time.Time, string) {
	if t.IsZero() {
		return time.Time{}, ""
	}
	parsed, err := datetime.Parse(t.Raw, g.now(), g.loc)
	if err != nil {
		g.logger.Warn().Err(err).Str("field", field).Str("id", id).Msg("registry date not understood")
		return time.Time{}, t.Raw
	}
	parsed = parsed.In(g.loc)
	return parsed, parsed.Format(datetime.Layout)
}
