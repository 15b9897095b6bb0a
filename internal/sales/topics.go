package sales

import "strconv"

const TopicOrderPlaced = "sales.order.placed"

// Partition key = store id, so one store's orders keep their order on a partition.
func PartitionKey(storeID int64) []byte { return []byte(strconv.FormatInt(storeID, 10)) }
