// Command zen evaluates, validates and inspects decision documents.
//
// Usage:
//
//	# Evaluate a decision against a context file
//	zen eval decisions/pricing.json --context order.json
//
//	# Override individual context fields
//	zen eval decisions/pricing.json --set customer.tier=gold --set total=120 --trace
//
//	# Check documents without evaluating them
//	zen validate decisions/*.json
//
//	# Evaluate a standalone expression
//	zen expr "sum(map(items, #.price))" --context cart.json
//
//	# Render the graph for Graphviz
//	zen graph decisions/pricing.json | dot -Tsvg > pricing.svg
//
//	# Serve the HTTP API
//	zen serve --config runtime.yaml
package main

func main() {
	Execute()
}
