// Package alerts implements the rule evaluation engine and webhook delivery
// for dashboard alerting. Rules are evaluated against every rendered view;
// webhooks are delivered to Slack, Teams or generic HTTP targets.
package alerts
