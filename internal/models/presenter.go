package models

// Degree is the presenter's degree track. It decides how a registration
// occupies a slot: PhD presenters take the whole slot, MSc presenters share
// it up to capacity.
type Degree string

const (
	DegreeMSc Degree = "MSc"
	DegreePhD Degree = "PhD"
)

// Exclusive reports whether the degree locks a slot to a single registrant.
func (d Degree) Exclusive() bool { return d == DegreePhD }

// NormalizeDegree maps an unset degree to the shared MSc track.
func NormalizeDegree(d Degree) Degree {
	if d == DegreePhD {
		return DegreePhD
	}
	return DegreeMSc
}

// Presenter roles. Coordinators manage slots and see delivery logs;
// presenters register and open attendance.
const (
	RolePresenter   = "presenter"
	RoleCoordinator = "coordinator"
)

// Presenter is a student who can register for seminar slots. Presenters are
// keyed by their university username rather than a surrogate id.
type Presenter struct {
	Username        string  `json:"username"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           string  `json:"email"`
	Degree          Degree  `json:"degree"`
	Role            string  `json:"role"`
	SupervisorName  *string `json:"supervisor_name,omitempty"`
	SupervisorEmail *string `json:"supervisor_email,omitempty"`
	PasswordHash    string  `json:"-"`
}

// FullName returns the display name for notifications.
func (p *Presenter) FullName() string {
	if p.FirstName == "" && p.LastName == "" {
		return p.Username
	}
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
