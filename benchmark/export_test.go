package benchmark

var Check = check
