// Package hclloader reads projects written in HCL. A project is one or more
// .hcl files holding graph blocks and at most one project block:
//
//	project "demo" {
//	  main = "main"
//	}
//
//	graph "main" {
//	  name = "Main"
//
//	  node "a" {
//	    kind   = "number"
//	    config = { value = 2 }
//	  }
//
//	  connection {
//	    from = "a.value"
//	    to   = "c.a"
//	  }
//
//	  outputs = ["c.output"]
//	}
package hclloader
