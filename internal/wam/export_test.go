package wam

import "wam-go/internal/fs"

// SetCopyTree replaces how the Copier copies a directory for its safety copy.
func (c *Copier) SetCopyTree(f func(src, dst string, ignore *fs.IgnoreMatcher) error) {
	c.copyTree = f
}

// SetRemove replaces how Prune deletes a backup slot.
func (a *BackupArchive) SetRemove(f func(path string) error) {
	a.remove = f
}
