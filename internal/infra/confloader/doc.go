// Package confloader layers configuration from defaults, a YAML file and
// the environment on top of koanf, and watches the file for edits.
//
// Later sources win:
//
//  1. Defaults passed through LoadMap
//  2. The YAML file
//  3. DELTASNAP_* environment variables
//
// Environment keys nest on a single underscore. A double underscore stands
// for a literal underscore inside a key:
//
//	DELTASNAP_REPLAY_NUM__PARTITIONS=64  ->  replay.num_partitions
package confloader
