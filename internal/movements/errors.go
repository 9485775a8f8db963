package movements

import "github.com/pkg/errors"

// ErrNotRefreshed means no dataset has been loaded yet. It is not the same as
// a refreshed dataset with no movements in the window.
var ErrNotRefreshed = errors.New("dataset never refreshed")
