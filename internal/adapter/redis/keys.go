package redis

import "strconv"

const groupsKey = "ledger:groups"

// segment length-prefixes an ID so IDs containing ':' cannot shift into the
// neighbouring key part.
func segment(id string) string { return strconv.Itoa(len(id)) + ":" + id }

func recordKey(groupID, userID string) string { return "ledger:record:" + segment(groupID) + ":" + userID }
func groupMembersKey(groupID string) string   { return "ledger:group:" + segment(groupID) + ":users" }
func settingKey(userID string) string         { return "ledger:setting:" + userID }
func memberNamesKey(groupID string) string    { return "ledger:members:" + segment(groupID) }
