package process

var FilterEnv = filterEnv
