// Package scoring defines the contract with the energy prediction model. A
// Scorer receives the fixed-order feature vector of a complete session and
// returns the predicted energy in kWh. Scoring is the only step of a session
// resolution that can fail; failures are reported as *Error so callers can
// tell them apart with errors.Is(err, ErrScoring).
package scoring
