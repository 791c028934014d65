package domain

import (
	"fmt"
	"strings"
)

// DeletePolicy 删除 User / Book 时对其 Loan 的处理方式
type DeletePolicy int

const (
	DeleteCascade DeletePolicy = iota
	DeleteRestrict
)

func (p DeletePolicy) String() string {
	switch p {
	case DeleteCascade:
		return "cascade"
	case DeleteRestrict:
		return "restrict"
	}
	return fmt.Sprintf("DeletePolicy(%d)", int(p))
}

// ParseDeletePolicy 空串按 cascade 处理
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cascade":
		return DeleteCascade, nil
	case "restrict":
		return DeleteRestrict, nil
	}
	return 0, fmt.Errorf("unknown delete policy %q", s)
}

// DeletePolicies 每条关系单独配置
type DeletePolicies struct {
	UserLoans DeletePolicy
	BookLoans DeletePolicy
}
