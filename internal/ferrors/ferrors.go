// Package ferrors centralizes the broker's error kinds (spec.md §7) as gRPC
// status values, following the same pattern as the teacher repo's
// internal/grpc/errors package: a stable code plus structured details, so
// callers at any boundary can branch on status.Code without string
// matching.
package ferrors

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
)

// Reason is the stable identifier attached to every error via ErrorInfo, so
// logs and responses can key on it without parsing messages.
type Reason string

const (
	ReasonAccessDenied            Reason = "ACCESS_DENIED"
	ReasonResourceNotFound        Reason = "RESOURCE_NOT_FOUND"
	ReasonInvalidArgument         Reason = "INVALID_ARGUMENT"
	ReasonConstraintFailed        Reason = "CONSTRAINT_FAILED"
	ReasonConstraintUnsatisfied   Reason = "CONSTRAINT_UNSATISFIED"
	ReasonMissingExpiryConstraint Reason = "MISSING_EXPIRY_CONSTRAINT"
	ReasonNoApproversAvailable    Reason = "NO_APPROVERS_AVAILABLE"
	ReasonInvalidProposal         Reason = "INVALID_PROPOSAL"
	ReasonIllegalState            Reason = "ILLEGAL_STATE"
	ReasonIO                      Reason = "IO_ERROR"

	errorInfoDomain = "jitgroups.miloapis.com"
)

func new(code codes.Code, reason Reason, msg string, details ...protoadapt.MessageV1) error {
	info := &errdetails.ErrorInfo{Domain: errorInfoDomain, Reason: string(reason)}
	all := append([]protoadapt.MessageV1{info}, details...)
	s, err := status.New(code, msg).WithDetails(all...)
	if err != nil {
		return status.New(codes.Internal, "internal error").Err()
	}
	return s.Err()
}

// AccessDenied reports that an ACL, self-approve rule, or a capability
// provider rejected the call.
func AccessDenied(msg string) error {
	return new(codes.PermissionDenied, ReasonAccessDenied, msg)
}

// ResourceNotFound reports that a group or resource is absent. Distinct from
// AccessDenied: used to detect "not yet provisioned".
func ResourceNotFound(msg string) error {
	return new(codes.NotFound, ReasonResourceNotFound, msg)
}

// InvalidArgument reports a proposal for the wrong group, an expired
// proposal, missing proposal input, or a non-positive duration.
func InvalidArgument(msg string) error {
	return new(codes.InvalidArgument, ReasonInvalidArgument, msg)
}

// ConstraintFailed reports that a predicate raised during evaluation. names
// lists every constraint that failed, not just the first.
func ConstraintFailed(msg string, names []string) error {
	return new(codes.FailedPrecondition, ReasonConstraintFailed, msg, &errdetails.BadRequest{
		FieldViolations: toFieldViolations(names),
	})
}

// ConstraintUnsatisfied reports that a predicate evaluated to false. names
// lists every constraint that was unsatisfied, not just the first.
func ConstraintUnsatisfied(msg string, names []string) error {
	return new(codes.FailedPrecondition, ReasonConstraintUnsatisfied, msg, &errdetails.BadRequest{
		FieldViolations: toFieldViolations(names),
	})
}

// MissingExpiryConstraint reports that a group has no JOIN expiry
// constraint, so no membership duration can be derived.
func MissingExpiryConstraint(msg string) error {
	return new(codes.Unimplemented, ReasonMissingExpiryConstraint, msg)
}

// NoApproversAvailable reports an empty recipient set for a proposal.
func NoApproversAvailable(msg string) error {
	return new(codes.FailedPrecondition, ReasonNoApproversAvailable, msg)
}

// InvalidProposal reports a proposal that references the wrong group, has
// expired, or is missing required input.
func InvalidProposal(msg string) error {
	return new(codes.InvalidArgument, ReasonInvalidProposal, msg)
}

// IllegalState reports an operation invoked in a state that forbids it, such
// as proposing a join that does not require approval.
func IllegalState(msg string) error {
	return new(codes.FailedPrecondition, ReasonIllegalState, msg)
}

// IO reports a network/transport failure from an injected capability. The
// caller may retry.
func IO(msg string, cause error) error {
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return new(codes.Unavailable, ReasonIO, msg)
}

func toFieldViolations(names []string) []*errdetails.BadRequest_FieldViolation {
	out := make([]*errdetails.BadRequest_FieldViolation, 0, len(names))
	for _, n := range names {
		out = append(out, &errdetails.BadRequest_FieldViolation{Field: n, Description: "constraint " + n})
	}
	return out
}

// ReasonOf extracts the Reason attached to err, if any.
func ReasonOf(err error) (Reason, bool) {
	s, ok := status.FromError(err)
	if !ok {
		return "", false
	}
	for _, d := range s.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return Reason(info.Reason), true
		}
	}
	return "", false
}

// Code returns the gRPC code carried by err, or codes.Unknown if err doesn't
// carry a status.
func Code(err error) codes.Code {
	s, ok := status.FromError(err)
	if !ok {
		return codes.Unknown
	}
	return s.Code()
}
