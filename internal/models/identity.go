package models

import "errors"

// Role is the kind of account an Identity belongs to
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

var (
	ErrUnknownRole      = errors.New("unknown role")
	ErrMissingSubjectID = errors.New("identity is missing its teacher or student id")
	ErrMissingFullName  = errors.New("identity is missing a full name")
)

// Identity is the authenticated role plus profile fields persisted for a session
type Identity struct {
	Role      Role   `json:"role"`
	TeacherID string `json:"teacher_id,omitempty"`
	StudentID string `json:"student_id,omitempty"`
	FullName  string `json:"full_name"`
	Email     string `json:"email,omitempty"`
}

// NewTeacherIdentity builds the identity stored after a teacher login
func NewTeacherIdentity(teacherID, fullName, email string) Identity {
	return Identity{Role: RoleTeacher, TeacherID: teacherID, FullName: fullName, Email: email}
}

// NewStudentIdentity builds the identity stored after a student card scan
func NewStudentIdentity(studentID, fullName string) Identity {
	return Identity{Role: RoleStudent, StudentID: studentID, FullName: fullName}
}

// Validate checks that the identity carries the id its role needs
func (i Identity) Validate() error {
	switch i.Role {
	case RoleTeacher:
		if i.TeacherID == "" {
			return ErrMissingSubjectID
		}
	case RoleStudent:
		if i.StudentID == "" {
			return ErrMissingSubjectID
		}
	default:
		return ErrUnknownRole
	}
	if i.FullName == "" {
		return ErrMissingFullName
	}
	return nil
}

// SubjectID returns the teacher or student id, depending on the role
func (i Identity) SubjectID() string {
	if i.Role == RoleTeacher {
		return i.TeacherID
	}
	return i.StudentID
}

// Is reports whether the identity is non-nil and has the given role
func (i *Identity) Is(role Role) bool {
	return i != nil && i.Role == role
}
