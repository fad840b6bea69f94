package orchestratornode

const (
	RouteFetchOrder = "fetch_order"
	RouteDraftReply = "draft_reply"
)

// Route picks the next node after order id resolution: a lookup when an id
// was resolved, straight to drafting otherwise.
func Route(in *GraphState) string {
	if in != nil && in.OrderID != "" {
		return RouteFetchOrder
	}
	return RouteDraftReply
}
