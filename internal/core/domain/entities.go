package domain

// Role represents a library member role
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

// IsValid reports whether the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Tag represents a book circulation class
type Tag string

const (
	// TagRed marks a non-circulating book (library use only)
	TagRed Tag = "RED"
	// TagYellow marks a 1-day loan regardless of role
	TagYellow Tag = "YELLOW"
	// TagWhite marks a role-dependent loan length
	TagWhite Tag = "WHITE"
)

// IsValid reports whether the tag is one of the known tags
func (t Tag) IsValid() bool {
	switch t {
	case TagRed, TagYellow, TagWhite:
		return true
	}
	return false
}

// Circulates reports whether books with this tag may be loaned or reserved
func (t Tag) Circulates() bool {
	return t != TagRed
}
