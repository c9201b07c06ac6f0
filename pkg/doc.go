// Package fdup finds files with identical content beneath one or more
// directory trees and can replace the duplicates with hard links, symbolic
// links or copy-on-write clones of a kept file.
//
// # Core API
//
// A run goes through three phases that never overlap: registration,
// finalization and iteration.
//
//	opts := fdup.DefaultOptions()
//	opts.Mode = fdup.ModeHardlink
//	if err := opts.Resolve(); err != nil {
//		return err
//	}
//
//	reg := fdup.NewRegistry(opts)
//	for _, err := range fdup.NewWalker(opts, reg).Walk(nil, []string{"/srv/photos"}) {
//		log.Print(err)
//	}
//	if err := reg.Finalize(); err != nil {
//		return err
//	}
//
// # Listing duplicates
//
//	err := fdup.PrintGroups(os.Stdout, reg.Iterator())
//
// Groups are printed in the order their first file was registered, one path
// per line, with a blank line between groups. The first path of a group is
// the keeper.
//
// # Linking duplicates
//
//	exec, err := fdup.NewExecutor(opts)
//	stats, err := exec.Apply(nil, reg.Iterator())
//
// Each duplicate is replaced atomically: the link is staged next to it as
// fdup.<pid>.tmp and renamed over it. The first failure stops the run.
//
// # Configuration
//
// Defaults can be set in an ini file found through the XDG config
// directories (fdup/config):
//
//	[filehash]
//	default = blake3
//	buffer = 1M
//
//	[match]
//	flags = mu
//
//	[size]
//	min = 4K
//
// Content equality is decided by digest. Set verify = true in [filehash]
// to confirm every match with a byte-for-byte comparison.
package fdup
