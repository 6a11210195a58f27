package discovery

import (
	"strings"

	"github.com/prometheus/procfs"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"

	"github.com/hpcio/tierctl/pkg/device"
)

// filesystem types that never back a storage tier
var pseudoFsTypes = map[string]bool{
	"proc": true, "sysfs": true, "devtmpfs": true, "devpts": true,
	"cgroup": true, "cgroup2": true, "overlay": true, "squashfs": true,
	"tmpfs": true, "ramfs": true, "autofs": true, "mqueue": true,
	"debugfs": true, "tracefs": true, "securityfs": true, "pstore": true,
	"fusectl": true, "configfs": true, "hugetlbfs": true, "bpf": true,
}

// filesystem types shared across a cluster
var sharedFsTypes = map[string]bool{
	"nfs": true, "nfs4": true, "cifs": true, "smbfs": true,
	"lustre": true, "gpfs": true, "beegfs": true, "fuse.beegfs": true,
	"ceph": true, "fuse.ceph": true, "glusterfs": true, "fuse.glusterfs": true,
	"orangefs": true, "pvfs2": true,
}

// FindStorage enumerates mounted filesystems eligible to back a storage
// tier. Pseudo filesystems and read-only mounts are skipped; network
// filesystems are flagged as cluster-shared.
func FindStorage() ([]device.Candidate, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return nil, err
	}
	shared := sharedMounts()
	var candidates []device.Candidate
	for _, p := range partitions {
		if pseudoFsTypes[p.Fstype] {
			continue
		}
		if readOnly(p.Opts) {
			log.Debugf("skipping read-only mount %s", p.Mountpoint)
			continue
		}
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil {
			log.Warnf("unable to stat mount %s, err: %s", p.Mountpoint, err)
			continue
		}
		candidates = append(candidates, device.Candidate{
			Mount:          p.Mountpoint,
			AvailableBytes: usage.Free,
			Shared:         shared[p.Mountpoint] || sharedFsTypes[p.Fstype],
			Type:           device.Filesystem,
		})
	}
	return candidates, nil
}

// sharedMounts maps mount points to their cluster-shared state based on
// /proc mount info. The mount info source carries the full filesystem
// type for network mounts (e.g. nfs4, fuse.beegfs) where the partition
// table may not.
func sharedMounts() map[string]bool {
	mounts, err := procfs.GetMounts()
	if err != nil {
		log.Warnf("unable to read mount info, err: %s", err)
		return map[string]bool{}
	}
	shared := make(map[string]bool, len(mounts))
	for _, m := range mounts {
		shared[m.MountPoint] = sharedFsTypes[m.FSType] ||
			strings.HasPrefix(m.FSType, "nfs")
	}
	return shared
}

// AvailableMemory returns the physical memory available for a memory
// tier on this host.
func AvailableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

func readOnly(opts []string) bool {
	for _, o := range opts {
		if o == "ro" {
			return true
		}
	}
	return false
}
