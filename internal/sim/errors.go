package sim

import "fmt"

// Reason classifies a rejected command.
type Reason string

const (
	ReasonInsufficientFunds    Reason = "InsufficientFunds"
	ReasonIncompatibleCategory Reason = "IncompatibleCategory"
	ReasonTooFewTerminals      Reason = "TooFewTerminals"
	ReasonEndpointNotTerminal  Reason = "EndpointNotTerminal"
	ReasonTerminalKindMismatch Reason = "TerminalKindMismatch"
	ReasonUnknownOwner         Reason = "UnknownOwner"
	ReasonUnknownLine          Reason = "UnknownLine"
	ReasonUnknownUnit          Reason = "UnknownUnit"
	ReasonUnknownTerminal      Reason = "UnknownTerminal"
	ReasonUnknownCategory      Reason = "UnknownCategory"
	ReasonUnknownTrackType     Reason = "UnknownTrackType"
	ReasonNotOwner             Reason = "NotOwner"
	ReasonTerminalInUse        Reason = "TerminalInUse"
	ReasonTooCloseToTerminal   Reason = "TooCloseToTerminal"
	ReasonInvalidName          Reason = "InvalidName"
	ReasonInvalidTier          Reason = "InvalidTier"
	ReasonInvalidKind          Reason = "InvalidKind"
	ReasonInvalidCoordinates   Reason = "InvalidCoordinates"
	ReasonInvalidLoan          Reason = "InvalidLoan"
	ReasonDuplicateOwner       Reason = "DuplicateOwner"
)

// ValidationError is returned by every world command that was rejected.
// A rejected command leaves the world unchanged.
type ValidationError struct {
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Is matches any ValidationError with the same reason.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

func invalid(r Reason, format string, args ...any) error {
	return &ValidationError{Reason: r, Detail: fmt.Sprintf(format, args...)}
}

var (
	ErrInsufficientFunds    = &ValidationError{Reason: ReasonInsufficientFunds}
	ErrIncompatibleCategory = &ValidationError{Reason: ReasonIncompatibleCategory}
	ErrTooFewTerminals      = &ValidationError{Reason: ReasonTooFewTerminals}
	ErrEndpointNotTerminal  = &ValidationError{Reason: ReasonEndpointNotTerminal}
	ErrTerminalKindMismatch = &ValidationError{Reason: ReasonTerminalKindMismatch}
	ErrUnknownOwner         = &ValidationError{Reason: ReasonUnknownOwner}
	ErrUnknownLine          = &ValidationError{Reason: ReasonUnknownLine}
	ErrUnknownUnit          = &ValidationError{Reason: ReasonUnknownUnit}
	ErrUnknownTerminal      = &ValidationError{Reason: ReasonUnknownTerminal}
	ErrUnknownCategory      = &ValidationError{Reason: ReasonUnknownCategory}
	ErrUnknownTrackType     = &ValidationError{Reason: ReasonUnknownTrackType}
	ErrNotOwner             = &ValidationError{Reason: ReasonNotOwner}
	ErrTerminalInUse        = &ValidationError{Reason: ReasonTerminalInUse}
	ErrTooCloseToTerminal   = &ValidationError{Reason: ReasonTooCloseToTerminal}
	ErrInvalidName          = &ValidationError{Reason: ReasonInvalidName}
	ErrInvalidTier          = &ValidationError{Reason: ReasonInvalidTier}
	ErrInvalidKind          = &ValidationError{Reason: ReasonInvalidKind}
	ErrInvalidCoordinates   = &ValidationError{Reason: ReasonInvalidCoordinates}
	ErrInvalidLoan          = &ValidationError{Reason: ReasonInvalidLoan}
	ErrDuplicateOwner       = &ValidationError{Reason: ReasonDuplicateOwner}
)
