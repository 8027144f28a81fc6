package estimator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RenderReport produces the Markdown cost document for one estimate. Pure
// function; persisting the result is ReportWriter's job.
func RenderReport(model *ArchitectureModel, est *Estimate) string {
	var b strings.Builder

	b.WriteString("# Architecture Cost Report\n\n")
	fmt.Fprintf(&b, "Project: %s\n", model.Metadata.ProjectName)
	fmt.Fprintf(&b, "Region: %s\n\n", model.Metadata.Region)

	b.WriteString("## Architecture\n\n")
	if model.DNS.Route53 {
		b.WriteString("- Route 53\n")
	}
	if model.Edge.CloudFront {
		b.WriteString("- CloudFront\n")
	}
	if model.Edge.WAF {
		b.WriteString("- WAF\n")
	}
	if model.Edge.S3StaticAssets {
		b.WriteString("- S3 (static assets)\n")
	}
	if model.ALBCount() > 0 {
		b.WriteString("- ALB + Auto Scaling EC2\n")
	} else {
		b.WriteString("- Auto Scaling EC2\n")
	}
	if model.Cache.ElastiCache {
		b.WriteString("- ElastiCache Memcached\n")
	}
	if model.Database.RDS != nil && model.Database.RDS.InstanceType != "" {
		b.WriteString("- RDS Multi-AZ\n")
	}
	if model.Storage.EFS != nil && model.Storage.EFS.StorageGB > 0 {
		b.WriteString("- Shared EFS\n")
	}
	fmt.Fprintf(&b, "- %d NAT Gateways\n", model.NATCount())

	b.WriteString("\n## Monthly costs\n\n")
	for _, service := range ServiceOrder {
		line := est.Lines[service]
		marker := ""
		if line.Source == SourceEstimate {
			marker = " (estimate)"
		}
		fmt.Fprintf(&b, "- %s: USD %s%s\n", strings.ToUpper(service), line.Amount.StringFixed(2), marker)
	}
	fmt.Fprintf(&b, "\nTOTAL ESTIMATED MONTHLY: USD %s\n", est.TotalString())

	return b.String()
}

// ReportWriter persists rendered reports into the export directory, created
// on demand.
type ReportWriter struct {
	Dir string
}

// Save writes the report under a timestamp-derived name and returns the file
// name. Millisecond timestamps can collide under very high request rates;
// acceptable for this workload.
func (w *ReportWriter) Save(content string) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("couldn't create export directory %s: %w", w.Dir, err)
	}
	name := fmt.Sprintf("architecture-%d.md", time.Now().UnixMilli())
	if err := os.WriteFile(filepath.Join(w.Dir, name), []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("couldn't write report %s: %w", name, err)
	}
	return name, nil
}
