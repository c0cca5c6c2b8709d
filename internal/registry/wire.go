package registry

// Method names exposed by the registry RPC proxy.
const (
	methodToken            = "GetToken"
	methodDistricts        = "GetDistrictList"
	methodFacilities       = "GetLPUList"
	methodSpecialties      = "GetSpesialityList"
	methodDoctors          = "GetDoctorList"
	methodAvailable        = "GetAvaibleAppointments"
	methodReserve          = "SetAppointment"
	methodSearchPatient    = "SearchTop10Patient"
	methodPatientHistory   = "GetPatientHistory"
	methodClaimForRefusal  = "CreateClaimForRefusal"
	registryDateOnlyLayout = "2006-01-02"
)

type tokenRequest struct {
	Login    string `json:"login,omitempty"`
	Password string `json:"password,omitempty"`
}

type tokenResponse struct {
	envelope
	Token     string `json:"token"`
	ExpiresIn *int64 `json:"expiresIn,omitempty"`
}

type districtListResponse struct {
	envelope
	Districts List[wireDistrict] `json:"district"`
}

type wireDistrict struct {
	IDDistrict   Ident  `json:"idDistrict"`
	DistrictName string `json:"districtName"`
}

type facilityListRequest struct {
	IDDistrict string `json:"idDistrict"`
}

type facilityListResponse struct {
	envelope
	Clinics List[wireClinic] `json:"clinic"`
}

type wireClinic struct {
	IDLPU      Ident  `json:"idLPU"`
	LPUName    string `json:"lpuName"`
	Address    string `json:"address"`
	IDDistrict Ident  `json:"idDistrict"`
}

type specialtyListRequest struct {
	IDLpu string `json:"idLpu"`
}

type specialtyListResponse struct {
	envelope
	Specialities List[wireSpeciality] `json:"speciality"`
}

type wireSpeciality struct {
	IDSpesiality    Ident  `json:"idSpesiality"`
	NameSpesiality  string `json:"nameSpesiality"`
	CountFreeTicket int    `json:"countFreeTicket"`
}

type doctorListRequest struct {
	IDSpesiality string `json:"idSpesiality"`
	IDLpu        string `json:"idLpu"`
}

type doctorListResponse struct {
	envelope
	Doctors List[wireDoctor] `json:"doctor"`
}

type wireDoctor struct {
	IDDoc           Ident  `json:"idDoc"`
	Name            string `json:"name"`
	CountFreeTicket int    `json:"countFreeTicket"`
}

type availableRequest struct {
	IDDoc      string `json:"idDoc"`
	IDLpu      string `json:"idLpu"`
	VisitStart string `json:"visitStart"`
	VisitEnd   string `json:"visitEnd"`
}

type availableResponse struct {
	envelope
	Appointments List[wireAppointment] `json:"appointment"`
}

type wireAppointment struct {
	IDAppointment Ident  `json:"idAppointment"`
	VisitStart    Time   `json:"visitStart"`
	VisitEnd      Time   `json:"visitEnd"`
	Address       string `json:"address"`
	Room          string `json:"room"`
	Num           Ident  `json:"num"`
}

type reserveRequest struct {
	IDAppointment string `json:"idAppointment"`
	IDLpu         string `json:"idLpu"`
	IDPat         string `json:"idPat"`
}

type reserveResponse struct {
	envelope
}

type wirePatientQuery struct {
	CellPhone  string `json:"cellPhone,omitempty"`
	Surname    string `json:"surname,omitempty"`
	Name       string `json:"name,omitempty"`
	SecondName string `json:"secondName,omitempty"`
	BirthYear  int    `json:"birthYear,omitempty"`
	Polis      string `json:"polis,omitempty"`
}

type searchPatientRequest struct {
	Pat   wirePatientQuery `json:"pat"`
	IDLpu string           `json:"idLpu,omitempty"`
}

type searchPatientResponse struct {
	envelope
	Patients List[wirePatient] `json:"patient"`
}

type wirePatient struct {
	IDPat      Ident  `json:"idPat"`
	Surname    string `json:"surname"`
	Name       string `json:"name"`
	SecondName string `json:"secondName"`
	Birthday   Time   `json:"birthday"`
	CellPhone  string `json:"cellPhone"`
}

type historyRequest struct {
	IDPat string `json:"idPat"`
	IDLpu string `json:"idLpu"`
}

type historyResponse struct {
	envelope
	Items List[wireHistoryItem] `json:"historyItem"`
}

type wireHistoryItem struct {
	IDAppointment  Ident  `json:"idAppointment"`
	VisitStart     Time   `json:"visitStart"`
	NameSpesiality string `json:"nameSpesiality"`
	IDDoc          Ident  `json:"idDoc"`
	DocName        string `json:"docName"`
	IDLpu          Ident  `json:"idLpu"`
	Address        string `json:"address"`
	Room           string `json:"room"`
	Num            Ident  `json:"num"`
}

type refusalRequest struct {
	IDLpu         string `json:"idLpu"`
	IDPat         string `json:"idPat"`
	IDAppointment string `json:"idAppointment"`
}

type refusalResponse struct {
	envelope
}
