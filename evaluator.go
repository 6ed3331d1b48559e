package policyeval

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/oarkflow/policyeval/logger"
)

// CacheConfig sizes the shared compiled-expression cache
type CacheConfig struct {
	NumCounters int64 `json:"num_counters" yaml:"num_counters"`
	MaxCost     int64 `json:"max_cost" yaml:"max_cost"`
	BufferItems int64 `json:"buffer_items" yaml:"buffer_items"`
}

func defaultCacheConfig() CacheConfig {
	return CacheConfig{NumCounters: 1 << 12, MaxCost: 1 << 20, BufferItems: 64}
}

// ExprCache is a concurrent read-through cache of compiled expressions keyed
// by expression text. Inserts are idempotent; recompiling the same text twice
// under a race is wasteful but not incorrect.
type ExprCache struct {
	c *ristretto.Cache
}

func NewExprCache(cfg CacheConfig) (*ExprCache, error) {
	def := defaultCacheConfig()
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = def.NumCounters
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = def.MaxCost
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = def.BufferItems
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("create expression cache: %w", err)
	}
	return &ExprCache{c: c}, nil
}

func (c *ExprCache) get(expression string) (Expr, bool) {
	v, ok := c.c.Get(expression)
	if !ok {
		return nil, false
	}
	node, ok := v.(Expr)
	return node, ok
}

func (c *ExprCache) put(expression string, node Expr) {
	c.c.Set(expression, node, int64(len(expression)))
}

// Wait blocks until buffered cache writes are applied. Mainly for tests and
// benchmarks.
func (c *ExprCache) Wait() { c.c.Wait() }

// Close releases the cache resources
func (c *ExprCache) Close() { c.c.Close() }

// RuleEvaluator executes one boolean expression against one context triple,
// or validates expression structure and references with no context bound.
type RuleEvaluator struct {
	registry   *Registry
	refs       ReferenceStore
	policy     *PolicyContext
	subject    *SubjectContext
	resource   *ResourceContext
	validation bool
	cache      *ExprCache
	logger     logger.Logger
}

// EvaluatorOption configures a RuleEvaluator
type EvaluatorOption func(*RuleEvaluator)

// WithLogger installs a logger used for predicate diagnostics
func WithLogger(l logger.Logger) EvaluatorOption {
	return func(e *RuleEvaluator) { e.logger = l }
}

// WithCache shares a compiled-expression cache across evaluators
func WithCache(c *ExprCache) EvaluatorOption {
	return func(e *RuleEvaluator) { e.cache = c }
}

// NewValidator builds a validation-mode evaluator: no contexts are bound,
// every predicate yields false, and string arguments are checked against the
// reference store so authoring typos fail before a policy is saved.
func NewValidator(registry *Registry, refs ReferenceStore, opts ...EvaluatorOption) *RuleEvaluator {
	e := &RuleEvaluator{
		registry:   registry,
		refs:       refs,
		validation: true,
		logger:     logger.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewRuleEvaluator builds an evaluation-mode evaluator bound to one policy,
// subject and resource context. All three are required.
func NewRuleEvaluator(registry *Registry, policy *PolicyContext, subject *SubjectContext, resource *ResourceContext, opts ...EvaluatorOption) (*RuleEvaluator, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if policy == nil || subject == nil || resource == nil {
		return nil, fmt.Errorf("policy, subject and resource contexts are required")
	}
	e := &RuleEvaluator{
		registry: registry,
		policy:   policy,
		subject:  subject,
		resource: resource,
		logger:   logger.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *RuleEvaluator) compile(expression string) (Expr, error) {
	if e.cache != nil {
		if node, ok := e.cache.get(expression); ok {
			return node, nil
		}
	}
	node, err := Parse(e.registry, expression)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.put(expression, node)
	}
	return node, nil
}

// Evaluate parses (or reuses a cached parse of) the expression and reduces it
// to a boolean. In evaluation mode any propagated error means the caller must
// deny; in validation mode the boolean is always false.
func (e *RuleEvaluator) Evaluate(ctx context.Context, expression string) (bool, error) {
	node, err := e.compile(expression)
	if err != nil {
		return false, err
	}
	ec := &EvalContext{
		Policy:     e.policy,
		Subject:    e.subject,
		Resource:   e.resource,
		ctx:        ctx,
		validation: e.validation,
		refs:       e.refs,
		logger:     e.logger,
	}
	result, err := node.Evaluate(ec)
	if err != nil {
		if !e.validation {
			e.logger.Error("expression evaluation failed",
				"expression", expression,
				"policy", e.policyName(),
				"subject", e.subjectName(),
				"resource", e.resourceName(),
				"error", err.Error())
		}
		return false, err
	}
	return result, nil
}

// Validate checks expression syntax and every referenced function, tag, team
// and role without requiring any context. All leaves execute: a reference
// error on one branch is still reported even when another branch appears
// first in the expression.
func (e *RuleEvaluator) Validate(ctx context.Context, expression string) error {
	node, err := e.compile(expression)
	if err != nil {
		return err
	}
	ec := &EvalContext{ctx: ctx, validation: true, refs: e.refs, logger: e.logger}
	_, err = node.Evaluate(ec)
	return err
}

func (e *RuleEvaluator) policyName() string {
	if e.policy == nil {
		return ""
	}
	return e.policy.PolicyName
}

func (e *RuleEvaluator) subjectName() string {
	if e.subject == nil || e.subject.User() == nil {
		return ""
	}
	return e.subject.User().Name
}

func (e *RuleEvaluator) resourceName() string {
	if e.resource == nil {
		return ""
	}
	return e.resource.Name()
}

// Validate is the policy-authoring-time check: syntax plus reference
// validation of every name the expression mentions.
func Validate(ctx context.Context, registry *Registry, refs ReferenceStore, expression string) error {
	return NewValidator(registry, refs).Validate(ctx, expression)
}

// Evaluate runs one access-decision check. The caller treats any returned
// error as deny.
func Evaluate(ctx context.Context, registry *Registry, expression string, policy *PolicyContext, subject *SubjectContext, resource *ResourceContext) (bool, error) {
	e, err := NewRuleEvaluator(registry, policy, subject, resource)
	if err != nil {
		return false, err
	}
	return e.Evaluate(ctx, expression)
}
