/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package resolve builds import maps from an entry set by walking the
// module graph the asset pipeline reports.
package resolve

import (
	"errors"
	"fmt"
)

// Logger receives diagnostics. github.com/charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
}

// ErrAssetNotFound is returned when a declared entry's local path does
// not resolve to an asset.
var ErrAssetNotFound = errors.New("asset not found")

// AssetNotFoundError names the entry and path that failed to resolve.
type AssetNotFoundError struct {
	ImportName string
	Path       string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("asset not found for %q: %s", e.ImportName, e.Path)
}

// Is makes errors.Is(err, ErrAssetNotFound) match.
func (e *AssetNotFoundError) Is(target error) bool {
	return target == ErrAssetNotFound
}
