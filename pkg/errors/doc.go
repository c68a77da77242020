// Package errors provides structured error types shared by the crash
// pipeline and its tooling.
//
// Every error carries an ErrorCode so callers can tell "nothing happened
// because it was already done" (ALREADY_REGISTERED, SUBMISSION_IN_PROGRESS)
// apart from real failures. Match codes with errors.As or the IsCode helper:
//
//	var se *errors.StructuredError
//	if stderrors.As(err, &se) && se.Code == errors.ErrCodeValidation {
//	    field := se.Context["field"]
//	}
package errors
