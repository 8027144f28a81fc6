package estimator

import (
	"encoding/json"
	"fmt"
)

// DefaultNATGateways is assumed when the model omits network.natGateways.
const DefaultNATGateways = 2

// ValidationPolicy selects how strict model validation is. The historical
// deployments of this estimator disagreed on which fields were mandatory;
// the policy makes that an explicit configuration choice instead of forked
// logic.
type ValidationPolicy string

const (
	// PolicyStrict additionally requires a managed database.
	PolicyStrict ValidationPolicy = "strict"
	// PolicyLenient only requires a region and at least one compute spec.
	PolicyLenient ValidationPolicy = "lenient"
)

func ParseValidationPolicy(s string) (ValidationPolicy, error) {
	switch ValidationPolicy(s) {
	case PolicyStrict, PolicyLenient:
		return ValidationPolicy(s), nil
	}
	return "", fmt.Errorf("validation policy '%s' is not recognized. Available policies: strict, lenient", s)
}

// ArchitectureModel describes the WordPress reference architecture to price.
// It is constructed fresh per request and never mutated after validation.
type ArchitectureModel struct {
	Metadata Metadata `json:"metadata"`
	Compute  Compute  `json:"compute"`
	Database Database `json:"database"`
	Storage  Storage  `json:"storage"`
	Network  Network  `json:"network"`
	Cache    Cache    `json:"cache"`
	Edge     Edge     `json:"edge"`
	DNS      DNS      `json:"dns"`
}

type Metadata struct {
	ProjectName string `json:"projectName"`
	Region      string `json:"region"`
}

type Compute struct {
	EC2 EC2Specs `json:"ec2"`
}

// EC2Specs accepts either a single spec object or an array of specs, so
// downstream logic always iterates a slice.
type EC2Specs []EC2Spec

func (s *EC2Specs) UnmarshalJSON(data []byte) error {
	var many []EC2Spec
	if err := json.Unmarshal(data, &many); err == nil {
		*s = many
		return nil
	}
	var one EC2Spec
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*s = EC2Specs{one}
	return nil
}

type EC2Spec struct {
	InstanceType string `json:"instanceType"`
	Quantity     int    `json:"quantity"`
	// MinInstances is a legacy alias for Quantity kept for older clients
	// that describe the auto-scaling group floor instead of a count.
	MinInstances int `json:"minInstances"`
}

// Count resolves the instance count; the legacy alias wins when both are set.
func (s EC2Spec) Count() int {
	if s.MinInstances > 0 {
		return s.MinInstances
	}
	return s.Quantity
}

func (s EC2Spec) check() (bool, string) {
	if s.InstanceType == "" {
		return false, "missing instanceType"
	}
	if s.Count() < 1 {
		return false, "missing quantity"
	}
	return true, ""
}

// SpecCheck records the per-entry validation outcome of one EC2 spec.
// Invalid entries are tolerated as not-yet-configured placeholders and
// priced as zero rather than failing the whole estimate.
type SpecCheck struct {
	Index      int
	Spec       EC2Spec
	Valid      bool
	SkipReason string
}

// CheckEC2 classifies every EC2 entry of the model.
func (m *ArchitectureModel) CheckEC2() []SpecCheck {
	checks := make([]SpecCheck, len(m.Compute.EC2))
	for i, spec := range m.Compute.EC2 {
		valid, reason := spec.check()
		checks[i] = SpecCheck{Index: i, Spec: spec, Valid: valid, SkipReason: reason}
	}
	return checks
}

type Database struct {
	RDS *RDSSpec `json:"rds"`
}

type RDSSpec struct {
	InstanceType string `json:"instanceType"`
}

type Storage struct {
	EFS *EFSSpec `json:"efs"`
}

type EFSSpec struct {
	StorageGB float64 `json:"storageGB"`
}

type Network struct {
	NATGateways   *int `json:"natGateways"`
	LoadBalancers *int `json:"loadBalancers"`
}

type Cache struct {
	ElastiCache bool `json:"elasticache"`
}

type Edge struct {
	CloudFront     bool `json:"cloudfront"`
	S3StaticAssets bool `json:"s3StaticAssets"`
	WAF            bool `json:"waf"`
}

type DNS struct {
	Route53 bool `json:"route53"`
}

// NATCount returns the NAT gateway count, defaulting to 2 when unset.
func (m *ArchitectureModel) NATCount() int {
	if m.Network.NATGateways == nil {
		return DefaultNATGateways
	}
	if *m.Network.NATGateways < 0 {
		return 0
	}
	return *m.Network.NATGateways
}

// ALBCount returns the load balancer count; absent means none.
func (m *ArchitectureModel) ALBCount() int {
	if m.Network.LoadBalancers == nil || *m.Network.LoadBalancers < 0 {
		return 0
	}
	return *m.Network.LoadBalancers
}

// Validate checks the model against the given policy. When allowedRegions is
// non-empty, the model region must be one of them. Unknown extra fields were
// already dropped during unmarshalling; they are never an error.
func (m *ArchitectureModel) Validate(policy ValidationPolicy, allowedRegions []string) error {
	if m.Metadata.Region == "" {
		return &ValidationError{Field: "metadata.region", Reason: "required"}
	}
	if len(allowedRegions) > 0 && !contains(allowedRegions, m.Metadata.Region) {
		return &ValidationError{Field: "metadata.region", Reason: fmt.Sprintf("%q is not an accepted region", m.Metadata.Region)}
	}

	valid := 0
	for _, check := range m.CheckEC2() {
		if check.Valid {
			valid++
		}
	}
	if valid == 0 {
		return &ValidationError{Field: "compute.ec2", Reason: "required"}
	}

	if policy == PolicyStrict {
		if m.Database.RDS == nil || m.Database.RDS.InstanceType == "" {
			return &ValidationError{Field: "database.rds", Reason: "required"}
		}
	}

	if m.Storage.EFS != nil && m.Storage.EFS.StorageGB < 0 {
		return &ValidationError{Field: "storage.efs.storageGB", Reason: "must be non-negative"}
	}
	if m.Network.NATGateways != nil && *m.Network.NATGateways < 0 {
		return &ValidationError{Field: "network.natGateways", Reason: "must be non-negative"}
	}

	return nil
}
