/*
Package config loads the recomp.yaml configuration file.

Every field is optional. Load merges the file over Defaults, so a
missing file, an empty file, and a file that sets a single key are all
valid. Absolutize pins the data, modules, and storage directories to
absolute paths before anything chdir-sensitive starts.

	modules_root: /srv/recomp/modules
	python: python3.11
	api:
	  addr: ":8000"
	engine:
	  workers: 2
	  rescan_interval: 30s
*/
package config
