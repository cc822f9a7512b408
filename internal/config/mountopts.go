package config

import "strings"

// SplitMountOptions pulls the store settings out of -o option lists so
// fstab entries such as
//
//	monfs#  /mnt/monfs  fuse  allow_other,host=db1,db=monfs,collection=objects  0 0
//
// work. It returns args with host=, db= and collection= removed (and -o
// pairs left empty dropped) and the extracted values keyed by name.
func SplitMountOptions(args []string) ([]string, map[string]string) {
	extra := map[string]string{}
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] != "-o" || i+1 >= len(args) {
			out = append(out, args[i])
			continue
		}
		i++
		var keep []string
		for _, opt := range strings.Split(args[i], ",") {
			k, v, ok := strings.Cut(opt, "=")
			if ok && (k == "host" || k == "db" || k == "collection") {
				extra[k] = v
				continue
			}
			if opt != "" {
				keep = append(keep, opt)
			}
		}
		if len(keep) > 0 {
			out = append(out, "-o", strings.Join(keep, ","))
		}
	}
	return out, extra
}

// ApplyMountOptions copies values returned by SplitMountOptions onto cfg.
func (c *Config) ApplyMountOptions(extra map[string]string) {
	if v, ok := extra["host"]; ok {
		c.Host = v
	}
	if v, ok := extra["db"]; ok {
		c.DB = v
	}
	if v, ok := extra["collection"]; ok {
		c.Collection = v
	}
}
