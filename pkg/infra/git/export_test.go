package git

var ParseWorktreeList = parseWorktreeList
