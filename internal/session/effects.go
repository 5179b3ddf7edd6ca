package session

import (
	"fmt"

	"github.com/desertthunder/coursex/internal/models"
)

// EffectKind names the IO the owner of a [Machine] must perform.
type EffectKind int

const (
	EffectSendStart EffectKind = iota
	EffectFetchBundle
	EffectFetchCourse
	EffectMarkComplete
	EffectDeleteCourse
	EffectRecordAttempt
)

func (k EffectKind) String() string {
	switch k {
	case EffectSendStart:
		return "send_start"
	case EffectFetchBundle:
		return "fetch_bundle"
	case EffectFetchCourse:
		return "fetch_course"
	case EffectMarkComplete:
		return "mark_complete"
	case EffectDeleteCourse:
		return "delete_course"
	case EffectRecordAttempt:
		return "record_attempt"
	default:
		return "unknown"
	}
}

// FetchKey identifies one issued request. A result is merged only while its key is still current:
// same epoch, same course id and, for fetches, the latest sequence number issued.
type FetchKey struct {
	Epoch    uint64
	CourseID string
	Seq      uint64
}

func (k FetchKey) String() string {
	return fmt.Sprintf("%s#%d@%d", k.CourseID, k.Seq, k.Epoch)
}

// Effect is a request for IO. Its result must be fed back through the matching
// Machine method together with Key.
type Effect struct {
	Kind      EffectKind
	Key       FetchKey
	Start     models.StartCreation // EffectSendStart
	SectionID string               // EffectMarkComplete
	Attempt   *models.Attempt      // EffectRecordAttempt
}

// NoticeLevel grades a transient notification.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeSuccess:
		return "success"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a dismissible message that does not change what the session shows.
type Notice struct {
	Level   NoticeLevel
	Message string
}
