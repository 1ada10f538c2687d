package model

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
)

// ZeroObject is the object id git passes for a ref that did not exist before the push
// (old side) or that is being deleted (new side).
const ZeroObject = "0000000000000000000000000000000000000000"

var objectIDPattern = regexp.MustCompile(`^[0-9a-f]{40}([0-9a-f]{24})?$`)

// PushEvent identifies what was pushed. It mirrors the arguments git passes to the update hook.
type PushEvent struct {
	RefName   string
	OldObject string
	NewObject string
}

// NewPushEvent validates hook arguments and builds a PushEvent
func NewPushEvent(refName, oldObject, newObject string) (*PushEvent, error) {
	if refName == "" {
		return nil, goerr.New("ref name is empty", goerr.T(types.ErrTagInvalidArgument))
	}
	for _, obj := range []string{oldObject, newObject} {
		if !objectIDPattern.MatchString(obj) {
			return nil, goerr.New("invalid object id",
				goerr.V("object", obj),
				goerr.T(types.ErrTagInvalidArgument))
		}
	}

	return &PushEvent{
		RefName:   refName,
		OldObject: oldObject,
		NewObject: newObject,
	}, nil
}

// IsNewRef reports whether the ref was created by this push
func (e PushEvent) IsNewRef() bool {
	return isZero(e.OldObject)
}

// IsDelete reports whether the ref was deleted by this push
func (e PushEvent) IsDelete() bool {
	return isZero(e.NewObject)
}

// Branch returns the short branch name, or an empty string if the ref is not a branch
func (e PushEvent) Branch() string {
	branch, ok := strings.CutPrefix(e.RefName, "refs/heads/")
	if !ok {
		return ""
	}
	return branch
}

func isZero(obj string) bool {
	return strings.Trim(obj, "0") == ""
}
