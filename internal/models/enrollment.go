package models

// EnrollmentAction is the "type" field of POST /studDash/.
type EnrollmentAction string

const (
	EnrollmentActionEnroll   EnrollmentAction = "enroll"
	EnrollmentActionUnenroll EnrollmentAction = "unenroll"
)

// EnrollmentRequest is the body of POST /studDash/.
type EnrollmentRequest struct {
	CourseIDs []int            `json:"CourseIDs"`
	Type      EnrollmentAction `json:"type"`
}

// StudentDashboard is the GET /studDash/ payload.
type StudentDashboard struct {
	AvailableCourses []Course         `json:"avail_courses"`
	EnrolledCourses  []EnrolledCourse `json:"enrolled_courses"`
	Reports          []SemesterReport `json:"report"`
	CurrentSemester  FlexInt          `json:"current_sem"`
	Department       Department       `json:"department"`
	Batch            *Batch           `json:"batch,omitempty"`
	Program          *Program         `json:"program,omitempty"`
	Username         string           `json:"username"`
	FirstName        string           `json:"first_name"`
	LastName         string           `json:"last_name"`
}

// AdminContext is the GET /adminDash/ payload used by course forms.
type AdminContext struct {
	Programs    []Program  `json:"programs"`
	AllPrograms []Program  `json:"allprograms,omitempty"`
	Batches     []Batch    `json:"batch"`
	Department  Department `json:"department"`
}

// HODOverview is the GET /hodDash/ payload.
type HODOverview struct {
	Programs []Program `json:"programs"`
	Batches  []Batch   `json:"batchs"`
	Courses  []Course  `json:"courses"`
}
