package artifact

import (
	"errors"
	"fmt"
	"regexp"
)

// Role distinguishes the two artifacts produced per analysis.
type Role string

const (
	// RoleOriginal is the client-submitted image, stored verbatim.
	RoleOriginal Role = "original"
	// RoleAnnotated is the engine-rendered overlay, always JPEG.
	RoleAnnotated Role = "annotated"
)

// ErrInvalidFilename is returned when a filename does not belong to the
// storage namespace of its role.
var ErrInvalidFilename = errors.New("invalid artifact filename")

var (
	originalPattern  = regexp.MustCompile(`^upload_([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})\.([a-z0-9]{1,5})$`)
	annotatedPattern = regexp.MustCompile(`^result_([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})\.jpg$`)
)

// Ref identifies one stored artifact by analysis ID and role. It is the only
// way paths into artifact storage are constructed.
type Ref struct {
	ID   string
	Role Role
	// Ext is the original image's file extension including the dot. Ignored
	// for the annotated role, which is always ".jpg".
	Ext string
}

// Filename returns the public filename for the artifact.
func (r Ref) Filename() string {
	if r.Role == RoleAnnotated {
		return fmt.Sprintf("result_%s.jpg", r.ID)
	}
	return fmt.Sprintf("upload_%s%s", r.ID, r.Ext)
}

// StorageKey returns the object-store key for the artifact. Originals and
// annotated results live in separate namespaces.
func (r Ref) StorageKey() string {
	if r.Role == RoleAnnotated {
		return "results/" + r.Filename()
	}
	return "uploads/" + r.Filename()
}

// URLPath returns the public retrieval path for the artifact.
func (r Ref) URLPath() string {
	if r.Role == RoleAnnotated {
		return "/results/" + r.Filename()
	}
	return "/uploads/" + r.Filename()
}

// ParseFilename validates a client-supplied filename against the naming scheme
// of the given role and reconstructs its Ref. Anything that does not match the
// scheme, including traversal attempts, fails with ErrInvalidFilename.
func ParseFilename(role Role, filename string) (Ref, error) {
	switch role {
	case RoleOriginal:
		m := originalPattern.FindStringSubmatch(filename)
		if m == nil {
			return Ref{}, ErrInvalidFilename
		}
		return Ref{ID: m[1], Role: RoleOriginal, Ext: "." + m[2]}, nil
	case RoleAnnotated:
		m := annotatedPattern.FindStringSubmatch(filename)
		if m == nil {
			return Ref{}, ErrInvalidFilename
		}
		return Ref{ID: m[1], Role: RoleAnnotated}, nil
	default:
		return Ref{}, ErrInvalidFilename
	}
}
