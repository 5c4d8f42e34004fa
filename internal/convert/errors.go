// Package convert translates single OpenIOC documents between the 1.0 and
// 1.1 dialects.
package convert

import "fmt"

// UpgradeError aborts the upgrade of one document.
type UpgradeError struct {
	ID  string
	Err error
}

func (e *UpgradeError) Error() string {
	return fmt.Sprintf("upgrade %s: %v", e.ID, e.Err)
}

func (e *UpgradeError) Unwrap() error {
	return e.Err
}

// DowngradeError aborts the downgrade of one document.
type DowngradeError struct {
	ID  string
	Err error
}

func (e *DowngradeError) Error() string {
	return fmt.Sprintf("downgrade %s: %v", e.ID, e.Err)
}

func (e *DowngradeError) Unwrap() error {
	return e.Err
}
