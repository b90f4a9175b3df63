package localization

import (
	"github.com/pitabwire/nils/validate"
)

// Owner identifies the unit whose location scope resource names are resolved against.
// Bundle adapters read it as a directory or bucket URL, database adapters as a namespace.
type Owner string

func (o Owner) String() string {
	return string(o)
}

// Config describes how to locate one group of localized resources.
type Config interface {
	// BaseFileName is the logical resource name before locale and extension
	// suffixing, e.g. "messages" or "billing/labels".
	BaseFileName() string
	// Owner is the scope BaseFileName is resolved against.
	Owner() Owner
}

// ResourceConfig is the plain Config implementation.
type ResourceConfig struct {
	baseFileName string
	owner        Owner
}

var _ Config = new(ResourceConfig)

// NewResourceConfig validates and captures a base file name and owner.
func NewResourceConfig(baseFileName string, owner Owner) (*ResourceConfig, error) {
	if _, err := validate.NotEmptyOrBlank(baseFileName, "baseFileName"); err != nil {
		return nil, err
	}
	if _, err := validate.NotZero(owner, "owner"); err != nil {
		return nil, err
	}

	return &ResourceConfig{baseFileName: baseFileName, owner: owner}, nil
}

func (c *ResourceConfig) BaseFileName() string {
	return c.baseFileName
}

func (c *ResourceConfig) Owner() Owner {
	return c.owner
}
