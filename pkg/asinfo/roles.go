// Package asinfo classifies well-known autonomous systems by their role in
// the routing system.
package asinfo

// Roles attached to AS metadata entries
const (
	RoleTier1     = "tier1"
	RoleScrubbing = "scrubbing"
)

// tier1 holds the transit-free providers.
var tier1 = map[uint32]string{
	174:   "Cogent Communications",
	209:   "Lumen (CenturyLink)",
	286:   "KPN",
	701:   "Verizon",
	1239:  "Sprint",
	1299:  "Arelion (Telia)",
	1828:  "Unitas Global",
	2914:  "NTT America",
	3257:  "GTT",
	3320:  "Deutsche Telekom",
	3356:  "Lumen (Level3)",
	3491:  "PCCW Global",
	5511:  "Orange",
	6453:  "Tata Communications",
	6461:  "Zayo",
	6762:  "Telecom Italia Sparkle",
	6830:  "Liberty Global",
	6939:  "Hurricane Electric",
	7018:  "AT&T",
	12956: "Telefonica",
}

// scrubbing holds DDoS mitigation networks. Announcements through these are
// commonly rerouted on purpose.
var scrubbing = map[uint32]string{
	198949: "Radware",
	48851:  "Radware",
	32787:  "Akamai Prolexic",
	20940:  "Akamai",
	13335:  "Cloudflare",
	209242: "Cloudflare",
	19551:  "Imperva Incapsula",
	62571:  "Imperva",
	19905:  "Vercara UltraDDoS Protect",
	57724:  "DDoS-Guard",
	197068: "Qrator Labs",
	3223:   "Voxility",
	34309:  "Link11",
	30148:  "Sucuri",
	20446:  "StackPath",
	397031: "Path Network",
}

// IsTier1 reports whether asn is a Tier-1 transit provider.
func IsTier1(asn uint32) bool {
	_, ok := tier1[asn]
	return ok
}

// IsScrubbing reports whether asn is a DDoS scrubbing network.
func IsScrubbing(asn uint32) bool {
	_, ok := scrubbing[asn]
	return ok
}

// Role returns the role tag for asn, or "" if it has none.
func Role(asn uint32) string {
	switch {
	case IsTier1(asn):
		return RoleTier1
	case IsScrubbing(asn):
		return RoleScrubbing
	default:
		return ""
	}
}

// Name returns the operator name for a classified asn.
func Name(asn uint32) string {
	if name, ok := tier1[asn]; ok {
		return name
	}
	return scrubbing[asn]
}
