// Package storage keeps every downloaded image version on disk.
//
// Each download becomes a new file named with its JST download time, so
// earlier versions are kept when an account changes its avatar or banner:
//
//	images/<id>/profile/20261014-093000_photo_400x400.jpg
//	images/<id>/profile.jpg -> profile/20261014-093000_photo_400x400.jpg
//
// Writes go to a temporary file in the target directory and are renamed into
// place. The <kind>.jpg alias is maintained by a LatestAlias strategy:
// SymlinkAlias, CopyAlias, or AutoAlias which tries a symlink first.
//
// Usage:
//
//	alias, _ := storage.NewAlias("auto")
//	manager, err := storage.NewManager("images", alias)
//	if err != nil {
//	    return err
//	}
//	path, err := manager.SaveVersion(id, models.AssetProfile, "photo.jpg", body)
package storage
