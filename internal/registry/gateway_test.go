package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

var msk = time.FixedZone("MSK", 3*60*60)

type registryStub struct {
	t          *testing.T
	tokenCalls atomic.Int32
	handlers   map[string]func(w http.ResponseWriter, body map[string]any)
}

func (s *registryStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/api/")
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	if method == methodToken {
		n := s.tokenCalls.Add(1)
		writeStubJSON(w, map[string]any{"token": "tok-" + string(rune('0'+n)), "expiresIn": 3600})
		return
	}
	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	h, ok := s.handlers[method]
	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, body)
}

func writeStubJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newStubGateway(t *testing.T, stub *registryStub, cancelSupported bool) (*Gateway, func()) {
	t.Helper()
	stub.t = t
	server := httptest.NewServer(stub)

	transport, err := NewHTTPTransport(HTTPTransportConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	tokens := NewTokenManager(NewTransportTokenSource(transport, "bot", "secret"), zerolog.Nop(), nil)
	gw := NewGateway(transport, tokens, GatewayConfig{Location: msk, CancelSupported: cancelSupported}, zerolog.Nop())
	gw.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, msk) }
	return gw, server.Close
}

func TestNewHTTPTransportRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPTransport(HTTPTransportConfig{})
	assert.Error(t, err)
}

func TestGatewayListSlotsNormalizesDates(t *testing.T) {
	stub := &registryStub{handlers: map[string]func(http.ResponseWriter, map[string]any){
		methodAvailable: func(w http.ResponseWriter, body map[string]any) {
			assert.Equal(t, "doc-1", body["idDoc"])
			assert.Equal(t, "2024-03-01", body["visitStart"])
			writeStubJSON(w, map[string]any{
				"success": true,
				"appointment": []map[string]any{
					{"idAppointment": 101, "visitStart": 1710054000000, "room": "12", "num": 4},
					{"idAppointment": "102", "visitStart": "/Date(1710055800000+0300)/"},
					{"idAppointment": "103", "visitStart": "2024-03-10 11:00"},
					{"idAppointment": "104", "visitStart": "10 марта 11:30"},
					{"idAppointment": "105", "visitStart": "someday"},
				},
			})
		},
	}}
	gw, done := newStubGateway(t, stub, true)
	defer done()

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, msk)
	slots, err := gw.ListSlots(context.Background(), "lpu-1", "doc-1", from, from.AddDate(0, 0, 14))
	require.NoError(t, err)
	require.Len(t, slots, 5)

	assert.Equal(t, "101", slots[0].ID)
	assert.Equal(t, "2024-03-10 10:00", slots[0].DateTime)
	assert.Equal(t, "12", slots[0].Room)
	assert.Equal(t, "4", slots[0].Ticket)
	assert.Equal(t, "lpu-1", slots[0].FacilityID)
	assert.Equal(t, "2024-03-10 10:30", slots[1].DateTime)
	assert.Equal(t, "2024-03-10 11:00", slots[2].DateTime)
	assert.Equal(t, "2024-03-10 11:30", slots[3].DateTime)
	assert.True(t, slots[4].StartsAt.IsZero())
	assert.Equal(t, "someday", slots[4].DateTime)
}

func TestGatewaySingletonList(t *testing.T) {
	stub := &registryStub{handlers: map[string]func(http.ResponseWriter, map[string]any){
		methodDoctors: func(w http.ResponseWriter, body map[string]any) {
			writeStubJSON(w, map[string]any{"doctor": map[string]any{"idDoc": 5, "name": " Петров П.П. "}})
		},
		methodDistricts: func(w http.ResponseWriter, body map[string]any) {
			writeStubJSON(w, map[string]any{"success": true})
		},
	}}
	gw, done := newStubGateway(t, stub, true)
	defer done()

	doctors, err := gw.ListDoctors(context.Background(), "lpu-1", "spec-1")
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, domain.Doctor{ID: "5", Name: "Петров П.П."}, doctors[0])

	districts, err := gw.ListDistricts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, districts)
}

func TestGatewayReuseTokenAcrossCalls(t *testing.T) {
	stub := &registryStub{handlers: map[string]func(http.ResponseWriter, map[string]any){
		methodSpecialties: func(w http.ResponseWriter, body map[string]any) {
			writeStubJSON(w, map[string]any{"speciality": []map[string]any{{"idSpesiality": 1, "nameSpesiality": "Терапевт", "countFreeTicket": 3}}})
		},
	}}
	gw, done := newStubGateway(t, stub, true)
	defer done()

	for i := 0; i < 3; i++ {
		specs, err := gw.ListSpecialties(context.Background(), "lpu-1")
		require.NoError(t, err)
		assert.Equal(t, 3, specs[0].FreeSlots)
	}
	assert.Equal(t, int32(1), stub.tokenCalls.Load())
}

func TestGatewayRetriesOnceOnUnauthorized(t *testing.T) {
	var calls atomic.Int32
	stub := &registryStub{}
	stub.handlers = map[string]func(http.ResponseWriter, map[string]any){
		methodReserve: func(w http.ResponseWriter, body map[string]any) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeStubJSON(w, map[string]any{"success": true})
		},
	}
	gw, done := newStubGateway(t, stub, true)
	defer done()

	require.NoError(t, gw.ReserveSlot(context.Background(), "lpu-1", "101", "pat-1"))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(2), stub.tokenCalls.Load())
}

func TestGatewayReserveRegistryError(t *testing.T) {
	stub := &registryStub{handlers: map[string]func(http.ResponseWriter, map[string]any){
		methodReserve: func(w http.ResponseWriter, body map[string]any) {
			writeStubJSON(w, map[string]any{
				"success":   false,
				"errorList": map[string]any{"error": map[string]any{"idError": 23, "errorDescription": "Талон уже занят"}},
			})
		},
	}}
	gw, done := newStubGateway(t, stub, true)
	defer done()

	err := gw.ReserveSlot(context.Background(), "lpu-1", "101", "pat-1")
	var regErr *domain.RegistryError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "23", regErr.Code)
	assert.Equal(t, "Талон уже занят", err.Error())
}

func TestGatewayTransportErrors(t *testing.T) {
	stub := &registryStub{handlers: map[string]func(http.ResponseWriter, map[string]any){
		methodReserve: func(w http.ResponseWriter, body map[string]any) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream timeout"))
		},
		methodDoctors: func(w http.ResponseWriter, body map[string]any) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		},
	}}
	gw, done := newStubGateway(t, stub, true)
	defer done()

	err := gw.ReserveSlot(context.Background(), "lpu-1", "101", "pat-1")
	var trErr *domain.TransportError
	require.True(t, errors.As(err, &trErr))
	assert.Contains(t, err.Error(), "502")

	_, err = gw.ListDoctors(context.Background(), "lpu-1", "spec-1")
	require.True(t, errors.As(err, &trErr))
}

func TestGatewaySearchPatients(t *testing.T) {
	stub := &registryStub{handlers: map[string]func(http.ResponseWriter, map[string]any){
		methodSearchPatient: func(w http.ResponseWriter, body map[string]any) {
			pat := body["pat"].(map[string]any)
			if pat["cellPhone"] != "+79991234567" {
				writeStubJSON(w, map[string]any{"success": true})
				return
			}
			writeStubJSON(w, map[string]any{"patient": map[string]any{
				"idPat": "p-1", "surname": "Иванова", "name": "Анна", "secondName": "",
				"birthday": "1990-05-20T00:00:00", "cellPhone": "+79991234567",
			}})
		},
	}}
	gw, done := newStubGateway(t, stub, true)
	defer done()

	_, err := gw.SearchPatients(context.Background(), PatientQuery{})
	var invalid *domain.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.ErrorIs(t, err, domain.ErrInvalid)
	assert.Zero(t, stub.tokenCalls.Load(), "empty query never reaches the registry")

	none, err := gw.SearchPatients(context.Background(), PatientQuery{Phone: "89991234567"})
	require.NoError(t, err)
	assert.Empty(t, none)

	found, err := gw.SearchPatients(context.Background(), PatientQuery{Phone: "+79991234567"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "p-1", found[0].ID)
	assert.Equal(t, "Иванова", found[0].LastName)
	assert.Equal(t, time.Date(1990, 5, 20, 0, 0, 0, 0, msk), found[0].BirthDate)
}

func TestGatewayPatientHistory(t *testing.T) {
	stub := &registryStub{handlers: map[string]func(http.ResponseWriter, map[string]any){
		methodPatientHistory: func(w http.ResponseWriter, body map[string]any) {
			writeStubJSON(w, map[string]any{"historyItem": map[string]any{
				"idAppointment": 900, "visitStart": "2024-03-12 09:00", "nameSpesiality": "Терапевт", "docName": "Петров",
			}})
		},
	}}
	gw, done := newStubGateway(t, stub, true)
	defer done()

	appts, err := gw.ListPatientAppointments(context.Background(), "lpu-1", "p-1")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "900", appts[0].ID)
	assert.Equal(t, "p-1", appts[0].ProfileID)
	assert.Equal(t, "lpu-1", appts[0].FacilityID)
	assert.Equal(t, domain.StatusBooked, appts[0].Status)
	assert.Equal(t, "2024-03-12 09:00", appts[0].DateTime)
}

func TestGatewayCancel(t *testing.T) {
	var cancelled atomic.Bool
	stub := &registryStub{handlers: map[string]func(http.ResponseWriter, map[string]any){
		methodClaimForRefusal: func(w http.ResponseWriter, body map[string]any) {
			assert.Equal(t, "101", body["idAppointment"])
			cancelled.Store(true)
			writeStubJSON(w, map[string]any{"success": true})
		},
	}}

	gw, done := newStubGateway(t, stub, true)
	require.NoError(t, gw.CancelAppointment(context.Background(), "lpu-1", "p-1", "101"))
	assert.True(t, cancelled.Load())
	done()

	gw, done = newStubGateway(t, stub, false)
	defer done()
	err := gw.CancelAppointment(context.Background(), "lpu-1", "p-1", "101")
	assert.True(t, errors.Is(err, domain.ErrUnsupported))
}

func TestGatewayAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	transport, err := NewHTTPTransport(HTTPTransportConfig{BaseURL: server.URL})
	require.NoError(t, err)
	tokens := NewTokenManager(NewTransportTokenSource(transport, "", ""), zerolog.Nop(), nil)
	gw := NewGateway(transport, tokens, GatewayConfig{}, zerolog.Nop())

	_, err = gw.ListDistricts(context.Background())
	var authErr *domain.AuthError
	assert.True(t, errors.As(err, &authErr))
}
