package intake

// DefaultPolicy is used when no policy file exists at the configured path.
// Any matching forbid routes the brief to a human for quoting.
const DefaultPolicy = `@id("auto-quote")
@obligation("AutoQuote")
permit (principal, action == Action::"quote", resource);

@id("large-batch")
@obligation("ManualReview")
@reason("asset count above the self-serve limit")
forbid (principal, action == Action::"quote", resource)
when { context.asset_count > 500 };

@id("emergency-complex")
@obligation("ManualReview")
@reason("emergency turnaround on complex edits")
forbid (principal, action == Action::"quote", resource)
when { context.urgency == "emergency" && context.has_complexity };

@id("heavy-complexity")
@obligation("ManualReview")
@reason("three or more complexity categories")
forbid (principal, action == Action::"quote", resource)
when { context.complexity_cost >= 75 };
`
